// Package card derives the display model of a post and lays it out as the
// visual tree that gets rasterized on export.
package card

import (
	"strings"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/markup"
)

// View is everything the card shows, derived from a Post and a Bundle on
// every render. It is never stored.
type View struct {
	Language    locale.Code      `json:"lang"`
	DisplayName string           `json:"display_name"`
	Handle      string           `json:"handle"`
	Verified    bool             `json:"verified"`
	Avatar      string           `json:"avatar,omitempty"`
	Body        []markup.Segment `json:"body"`
	Stats       []Stat           `json:"stats"`
}

// Stat is one abbreviated engagement count and its label.
type Stat struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Build derives the view. Empty identity fields and body fall back to the
// bundle's placeholders.
func Build(p domain.Post, b locale.Bundle) View {
	name := p.DisplayName
	if name == "" {
		name = b.NamePlaceholder
	}
	handle := strings.TrimPrefix(p.Handle, "@")
	if handle == "" {
		handle = b.HandlePlaceholder
	}

	return View{
		Language:    b.Code,
		DisplayName: name,
		Handle:      "@" + handle,
		Verified:    p.Verified,
		Avatar:      p.Avatar,
		Body:        markup.ForLetters(b.HashtagLetters).Display(p.Body, b.BodyPlaceholder),
		Stats: []Stat{
			{Value: b.Numbers.Format(p.Retweets.Int64()), Label: b.RetweetLabel},
			{Value: b.Numbers.Format(p.Quotes.Int64()), Label: b.QuoteLabel},
			{Value: b.Numbers.Format(p.Likes.Int64()), Label: b.LikeLabel},
		},
	}
}
