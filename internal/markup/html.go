package markup

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy admits only the markup HTML produces: classed spans and line breaks.
var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(mention|hashtag|link)$`)).OnElements("span")
	return p
}()

// HTML renders segments as an HTML fragment: styled kinds become
// <span class="kind">, line breaks become <br />, text is escaped.
func HTML(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		switch seg.Kind {
		case KindLinebreak:
			b.WriteString("<br />")
		case KindMention, KindHashtag, KindLink:
			b.WriteString(`<span class="`)
			b.WriteString(string(seg.Kind))
			b.WriteString(`">`)
			b.WriteString(html.EscapeString(seg.Text))
			b.WriteString("</span>")
		default:
			b.WriteString(html.EscapeString(seg.Text))
		}
	}
	return b.String()
}

// Sanitize strips anything from fragment that HTML would not have produced.
// The result is safe to inject into a page as raw HTML.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}
