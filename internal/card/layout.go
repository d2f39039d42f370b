package card

import (
	"errors"
	"image"
	"math"
	"strings"
	"unicode"

	"github.com/gogpu/gg/text"

	"github.com/blackmichael/postmock/internal/avatar"
	"github.com/blackmichael/postmock/internal/markup"
)

// Card geometry in pixels.
const (
	Width      = 598
	Padding    = 16
	AvatarSize = 48
	BadgeSize  = 19

	headerGap  = 12
	sectionGap = 16
	actionRow  = 48
	statGap    = 20
)

// ErrNoFonts is returned by Layout when called without fonts.
var ErrNoFonts = errors.New("card: fonts are required for layout")

// Run is a positioned piece of text. Y is the baseline.
type Run struct {
	Text  string
	X, Y  float64
	Style Style
}

// Node is the laid-out card: the visual subtree that an export captures.
// Its Width and Height are the on-screen size at layout time.
type Node struct {
	Width, Height int

	View  View
	Fonts *Fonts

	// Avatar is the disc-masked avatar, nil when absent or undecodable.
	Avatar    image.Image
	AvatarBox image.Rectangle

	// Badge is empty unless the author is verified.
	Badge image.Rectangle

	Runs     []Run
	Dividers []float64
	Actions  []image.Point
}

// Mounted reports whether the node has been laid out with a drawable size.
func (n *Node) Mounted() bool {
	return n != nil && n.Width > 0 && n.Height > 0
}

// Bounds is the node's rectangle at the origin.
func (n *Node) Bounds() image.Rectangle {
	return image.Rect(0, 0, n.Width, n.Height)
}

// Layout measures and positions every element of v in a Width-wide column.
// An avatar that cannot be decoded is dropped so the placeholder shows.
func Layout(v View, fonts *Fonts) (*Node, error) {
	if fonts == nil {
		return nil, ErrNoFonts
	}

	n := &Node{Width: Width, View: v, Fonts: fonts}

	n.AvatarBox = image.Rect(Padding, Padding, Padding+AvatarSize, Padding+AvatarSize)
	if v.Avatar != "" {
		if img, err := avatar.Decode(v.Avatar); err == nil {
			n.Avatar = avatar.Circle(img, AvatarSize)
		}
	}

	// Header: name (+ badge) over handle, beside the avatar.
	textX := float64(Padding + AvatarSize + headerGap)
	nameFace := fonts.Face(StyleName)
	nameMetrics := nameFace.Metrics()
	nameY := float64(Padding) + nameMetrics.Ascent + 4
	n.Runs = append(n.Runs, Run{Text: v.DisplayName, X: textX, Y: nameY, Style: StyleName})

	if v.Verified {
		bx := int(math.Ceil(textX+nameFace.Advance(v.DisplayName))) + 4
		by := int(nameY-nameMetrics.Ascent) + 1
		n.Badge = image.Rect(bx, by, bx+BadgeSize, by+BadgeSize)
	}

	handleFace := fonts.Face(StyleHandle)
	handleY := nameY + nameMetrics.Descent + handleFace.Metrics().Ascent + 2
	n.Runs = append(n.Runs, Run{Text: v.Handle, X: textX, Y: handleY, Style: StyleHandle})

	// Body.
	bodyTop := float64(Padding + AvatarSize + headerGap)
	runs, bottom := wrapBody(v.Body, fonts.Face(StyleBody), Padding, bodyTop, Width-2*Padding)
	n.Runs = append(n.Runs, runs...)

	// Stats row between two dividers.
	y := bottom + sectionGap
	n.Dividers = append(n.Dividers, y)

	valueFace := fonts.Face(StyleStatValue)
	labelFace := fonts.Face(StyleStatLabel)
	statMetrics := valueFace.Metrics()
	statY := y + sectionGap + statMetrics.Ascent
	x := float64(Padding)
	for _, s := range v.Stats {
		n.Runs = append(n.Runs, Run{Text: s.Value, X: x, Y: statY, Style: StyleStatValue})
		x += valueFace.Advance(s.Value) + 4
		n.Runs = append(n.Runs, Run{Text: s.Label, X: x, Y: statY, Style: StyleStatLabel})
		x += labelFace.Advance(s.Label) + statGap
	}
	y = statY + statMetrics.Descent + sectionGap
	n.Dividers = append(n.Dividers, y)

	// Action glyphs, evenly spread.
	centerY := int(y) + actionRow/2
	slot := (Width - 2*Padding) / 4
	for i := range 4 {
		n.Actions = append(n.Actions, image.Pt(Padding+slot*i+slot/2, centerY))
	}

	n.Height = int(math.Ceil(y)) + actionRow + Padding/2
	return n, nil
}

// wrapBody places segment text word by word, breaking lines at maxWidth
// and at linebreak segments. It returns the runs and the y just below the
// last line.
func wrapBody(segs []markup.Segment, face text.Face, left, top, maxWidth float64) ([]Run, float64) {
	metrics := face.Metrics()
	lineHeight := math.Ceil(metrics.LineHeight() * 1.2)

	var runs []Run
	x := 0.0
	line := 0
	baseline := func() float64 { return top + metrics.Ascent + float64(line)*lineHeight }
	newline := func() {
		line++
		x = 0
	}

	for _, seg := range segs {
		if seg.Kind == markup.KindLinebreak {
			newline()
			continue
		}
		style := StyleBody
		if seg.Kind != markup.KindPlain {
			style = StyleAccent
		}

		for _, tok := range tokens(seg.Text) {
			w := face.Advance(tok)
			space := strings.TrimSpace(tok) == ""

			if x+w > maxWidth && x > 0 {
				newline()
				if space {
					continue
				}
			}
			if w > maxWidth && !space {
				for _, part := range hardBreak(tok, face, maxWidth) {
					if x > 0 {
						newline()
					}
					runs = append(runs, Run{Text: part, X: left + x, Y: baseline(), Style: style})
					x = face.Advance(part)
				}
				continue
			}

			runs = append(runs, Run{Text: tok, X: left + x, Y: baseline(), Style: style})
			x += w
		}
	}

	bottom := top + float64(line+1)*lineHeight
	return runs, bottom
}

// tokens splits s into alternating runs of spaces and non-spaces.
func tokens(s string) []string {
	var out []string
	start := 0
	prevSpace := false
	for i, r := range s {
		sp := unicode.IsSpace(r)
		if i > start && sp != prevSpace {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = sp
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// hardBreak cuts a word wider than maxWidth into pieces that fit.
func hardBreak(word string, face text.Face, maxWidth float64) []string {
	var parts []string
	start := 0
	for i := range word {
		if i > start && face.Advance(word[start:i]) > maxWidth {
			// Back off one rune.
			prev := start
			for j := range word[start:i] {
				prev = start + j
			}
			if prev == start {
				prev = i
			}
			parts = append(parts, word[start:prev])
			start = prev
		}
	}
	return append(parts, word[start:])
}
