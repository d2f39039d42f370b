// Package locale holds the static UI text bundles, keyed by language code.
package locale

import (
	"golang.org/x/text/language"

	"github.com/blackmichael/postmock/internal/markup"
	"github.com/blackmichael/postmock/internal/numfmt"
)

// Code identifies a bundle.
type Code string

const (
	Turkish Code = "tr"
	English Code = "en"

	// Primary is the bundle used when nothing else is known.
	Primary = Turkish
	// Secondary is the alternate bundle.
	Secondary = English
)

// Bundle is the set of user-facing strings for one language.
type Bundle struct {
	Code Code   `json:"code"`
	Name string `json:"name"`

	Settings      string `json:"settings"`
	NameLabel     string `json:"name_label"`
	HandleLabel   string `json:"handle_label"`
	BodyLabel     string `json:"body_label"`
	AvatarLabel   string `json:"avatar_label"`
	VerifiedLabel string `json:"verified_label"`
	Yes           string `json:"yes"`
	No            string `json:"no"`
	ExportButton  string `json:"export_button"`
	LookupButton  string `json:"lookup_button"`
	LookupHint    string `json:"lookup_hint"`

	NamePlaceholder   string `json:"name_placeholder"`
	HandlePlaceholder string `json:"handle_placeholder"`
	BodyPlaceholder   string `json:"body_placeholder"`

	RetweetLabel string `json:"retweet_label"`
	QuoteLabel   string `json:"quote_label"`
	LikeLabel    string `json:"like_label"`

	// Numbers abbreviates engagement counts for this language.
	Numbers numfmt.Formatter `json:"-"`

	// HashtagLetters extends \w for hashtag matching.
	HashtagLetters string `json:"-"`
}

// Store is an immutable set of bundles.
type Store struct {
	bundles map[Code]Bundle
	matcher language.Matcher
	codes   []Code
}

// NewStore builds the store with the recognized bundles. The first code in
// the matcher order is the primary bundle.
func NewStore() *Store {
	bundles := map[Code]Bundle{
		Turkish: {
			Code:              Turkish,
			Name:              "Türkçe",
			Settings:          "Tweet Ayarları",
			NameLabel:         "Ad Soyad",
			HandleLabel:       "Kullanıcı Adı",
			BodyLabel:         "Tweet",
			AvatarLabel:       "Avatar",
			VerifiedLabel:     "Doğrulanmış Hesap",
			Yes:               "Evet",
			No:                "Hayır",
			ExportButton:      "Oluştur",
			LookupButton:      "Bilgileri Çek",
			LookupHint:        "Twitter kullanıcı adını yazın",
			NamePlaceholder:   "Ad Soyad",
			HandlePlaceholder: "kullaniciadi",
			BodyPlaceholder:   "Bu alana örnek tweet gelecek",
			RetweetLabel:      "Retweet",
			QuoteLabel:        "Alıntı Tweetler",
			LikeLabel:         "Beğeni",
			Numbers:           numfmt.Default,
			HashtagLetters:    markup.DefaultHashtagLetters,
		},
		English: {
			Code:              English,
			Name:              "English",
			Settings:          "Tweet Settings",
			NameLabel:         "Full Name",
			HandleLabel:       "Username",
			BodyLabel:         "Tweet",
			AvatarLabel:       "Avatar",
			VerifiedLabel:     "Verified Account",
			Yes:               "Yes",
			No:                "No",
			ExportButton:      "Create",
			LookupButton:      "Fetch Info",
			LookupHint:        "Type a Twitter username",
			NamePlaceholder:   "Full Name",
			HandlePlaceholder: "username",
			BodyPlaceholder:   "Your sample tweet will appear here",
			RetweetLabel:      "Retweets",
			QuoteLabel:        "Quote Tweets",
			LikeLabel:         "Likes",
			Numbers:           numfmt.Formatter{Suffix: "K", Decimal: "."},
			HashtagLetters:    markup.DefaultHashtagLetters,
		},
	}

	return &Store{
		bundles: bundles,
		matcher: language.NewMatcher([]language.Tag{language.Turkish, language.English}),
		codes:   []Code{Turkish, English},
	}
}

// Lookup returns the bundle for code. An unrecognized code reports false;
// callers treat that as "not loaded yet" rather than an error.
func (s *Store) Lookup(code Code) (Bundle, bool) {
	b, ok := s.bundles[code]
	return b, ok
}

// MustLookup returns the bundle for code, falling back to the primary one.
func (s *Store) MustLookup(code Code) Bundle {
	if b, ok := s.bundles[code]; ok {
		return b
	}
	return s.bundles[Primary]
}

// Codes lists the recognized codes, primary first.
func (s *Store) Codes() []Code {
	return append([]Code(nil), s.codes...)
}

// Match picks the best bundle for an Accept-Language header value. Empty or
// unparsable headers yield the primary code.
func (s *Store) Match(acceptLanguage string) Code {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Primary
	}
	_, idx, conf := s.matcher.Match(tags...)
	if conf == language.No {
		return Primary
	}
	return s.codes[idx]
}
