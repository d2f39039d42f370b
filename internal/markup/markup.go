// Package markup turns raw post text into tagged display segments.
package markup

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultHashtagLetters are the letters outside \w that hashtags accept in
// the primary locale.
const DefaultHashtagLetters = "şçöğüıİ"

// Kind tags a segment of post text.
type Kind string

const (
	KindPlain     Kind = "plain"
	KindMention   Kind = "mention"
	KindHashtag   Kind = "hashtag"
	KindLink      Kind = "link"
	KindLinebreak Kind = "linebreak"
)

// Segment is a single styled span of post text. Linebreak segments carry no
// text.
type Segment struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Transformer holds the compiled patterns for one hashtag alphabet. It is
// immutable and safe for concurrent use.
type Transformer struct {
	mention *regexp.Regexp
	hashtag *regexp.Regexp
	link    *regexp.Regexp
}

var (
	defaultTransformer = New(DefaultHashtagLetters)
	shared             sync.Map // hashtag letters -> *Transformer
)

// New compiles a Transformer whose hashtags accept word characters plus the
// given extra letters.
func New(hashtagLetters string) *Transformer {
	return &Transformer{
		mention: regexp.MustCompile(`@\w+`),
		hashtag: regexp.MustCompile(`(?i)#[\w` + regexp.QuoteMeta(hashtagLetters) + `]+`),
		link:    regexp.MustCompile(`https?://[\w\-./~%?=&+:]+`),
	}
}

// ForLetters returns a shared Transformer for the given hashtag letters,
// compiling it on first use.
func ForLetters(hashtagLetters string) *Transformer {
	if t, ok := shared.Load(hashtagLetters); ok {
		return t.(*Transformer)
	}
	t, _ := shared.LoadOrStore(hashtagLetters, New(hashtagLetters))
	return t.(*Transformer)
}

// Transform splits body into segments using the default hashtag alphabet.
func Transform(body string) []Segment {
	return defaultTransformer.Transform(body)
}

// Transform splits body into segments. Passes run in a fixed order
// (mentions, hashtags, the first link, line breaks) and each pass only looks
// at plain text left over by the previous one.
//
// Only the first link in the text is marked. Later URLs stay plain.
func (t *Transformer) Transform(body string) []Segment {
	segs := []Segment{{Kind: KindPlain, Text: body}}
	segs = wrapMatches(segs, t.mention, KindMention, -1)
	segs = wrapMatches(segs, t.hashtag, KindHashtag, -1)
	segs = wrapMatches(segs, t.link, KindLink, 1)
	segs = splitLines(segs)
	return compact(segs)
}

// Display is Transform with the empty-content fallback applied: blank input
// yields a single plain segment holding placeholder.
func (t *Transformer) Display(body, placeholder string) []Segment {
	if strings.TrimSpace(body) == "" {
		return []Segment{{Kind: KindPlain, Text: placeholder}}
	}
	return t.Transform(body)
}

// Display applies the default transformer with the empty-content fallback.
func Display(body, placeholder string) []Segment {
	return defaultTransformer.Display(body, placeholder)
}

// wrapMatches replaces matches of re inside plain segments with segments of
// the given kind. limit caps the total number of matches across all
// segments; a negative limit means no cap.
func wrapMatches(in []Segment, re *regexp.Regexp, kind Kind, limit int) []Segment {
	out := make([]Segment, 0, len(in))
	for _, seg := range in {
		if seg.Kind != KindPlain || limit == 0 {
			out = append(out, seg)
			continue
		}

		locs := re.FindAllStringIndex(seg.Text, limit)
		if len(locs) == 0 {
			out = append(out, seg)
			continue
		}

		last := 0
		for _, loc := range locs {
			out = append(out,
				Segment{Kind: KindPlain, Text: seg.Text[last:loc[0]]},
				Segment{Kind: kind, Text: seg.Text[loc[0]:loc[1]]},
			)
			last = loc[1]
		}
		out = append(out, Segment{Kind: KindPlain, Text: seg.Text[last:]})

		if limit > 0 {
			limit -= len(locs)
		}
	}
	return out
}

func splitLines(in []Segment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, seg := range in {
		if seg.Kind != KindPlain || !strings.Contains(seg.Text, "\n") {
			out = append(out, seg)
			continue
		}
		for i, line := range strings.Split(seg.Text, "\n") {
			if i > 0 {
				out = append(out, Segment{Kind: KindLinebreak})
			}
			out = append(out, Segment{Kind: KindPlain, Text: line})
		}
	}
	return out
}

// compact drops empty plain segments produced by splitting.
func compact(in []Segment) []Segment {
	out := in[:0]
	for _, seg := range in {
		if seg.Kind == KindPlain && seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}
