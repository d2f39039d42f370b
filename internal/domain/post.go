package domain

import (
	"unicode/utf16"

	"github.com/blackmichael/postmock/internal/locale"
)

// MaxBodyLength is the body limit in UTF-16 code units, matching what a
// browser textarea's maxlength counts.
const MaxBodyLength = 290

// Post is the editable mock post. It is the single source of truth for
// everything rendered or exported.
type Post struct {
	// DisplayName is the author's shown name. May be empty.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Handle is the author's username without the leading '@'. May be empty.
	Handle string `json:"handle" yaml:"handle"`

	// Verified shows the badge next to the name.
	Verified bool `json:"verified" yaml:"verified"`

	// Body is the raw post text, at most MaxBodyLength code units.
	Body string `json:"body" yaml:"body"`

	// Avatar is a data URI. Empty means no avatar; renderers show a
	// placeholder.
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`

	Retweets Count `json:"retweets" yaml:"retweets"`
	Quotes   Count `json:"quotes" yaml:"quotes"`
	Likes    Count `json:"likes" yaml:"likes"`

	// Language selects the active text bundle.
	Language locale.Code `json:"lang" yaml:"lang"`
}

// NewPost returns an empty post in the primary language.
func NewPost() *Post {
	return &Post{Language: locale.Primary}
}

// TruncateBody cuts s to at most MaxBodyLength UTF-16 code units without
// splitting a surrogate pair.
func TruncateBody(s string) string {
	units := 0
	for i, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > MaxBodyLength {
			return s[:i]
		}
		units += n
	}
	return s
}

// ApplyProfile copies looked-up profile fields onto the post. Avatar is set
// only when avatar is non-empty, so a failed image fetch keeps the old one.
func (p *Post) ApplyProfile(prof *Profile, avatar string) {
	p.DisplayName = prof.Name
	p.Handle = prof.ScreenName
	p.Body = TruncateBody(prof.Status.Text)
	p.Retweets = Count(clampCount(prof.Status.RetweetCount))
	p.Likes = Count(clampCount(prof.Status.FavoriteCount))
	if avatar != "" {
		p.Avatar = avatar
	}
}

func clampCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
