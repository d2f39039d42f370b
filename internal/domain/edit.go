package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackmichael/postmock/internal/locale"
)

var (
	// ErrUnknownField is returned by ApplyEdit for a field it does not know.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownLanguage is returned by ApplyEdit for an unrecognized code.
	ErrUnknownLanguage = errors.New("unknown language")
)

// Field names an editable Post field.
type Field string

const (
	FieldDisplayName Field = "display_name"
	FieldHandle      Field = "handle"
	FieldVerified    Field = "verified"
	FieldBody        Field = "body"
	FieldAvatar      Field = "avatar"
	FieldRetweets    Field = "retweets"
	FieldQuotes      Field = "quotes"
	FieldLikes       Field = "likes"
	FieldLanguage    Field = "lang"
)

// Edit is a single form change, as raw text from an input control.
type Edit struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// LanguageChecker reports whether a language code has a bundle.
type LanguageChecker interface {
	Lookup(code locale.Code) (locale.Bundle, bool)
}

// ApplyEdit is the form collaborator: it coerces the raw value into the
// field's type and stores it. Bad numbers become 0 and long bodies are
// truncated. Unknown fields and languages leave the post unchanged.
func ApplyEdit(p *Post, e Edit, langs LanguageChecker) error {
	switch e.Field {
	case FieldDisplayName:
		p.DisplayName = e.Value
	case FieldHandle:
		p.Handle = strings.TrimPrefix(e.Value, "@")
	case FieldVerified:
		p.Verified = ParseFlag(e.Value)
	case FieldBody:
		p.Body = TruncateBody(e.Value)
	case FieldAvatar:
		p.Avatar = e.Value
	case FieldRetweets:
		p.Retweets = ParseCount(e.Value)
	case FieldQuotes:
		p.Quotes = ParseCount(e.Value)
	case FieldLikes:
		p.Likes = ParseCount(e.Value)
	case FieldLanguage:
		code := locale.Code(e.Value)
		if _, ok := langs.Lookup(code); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLanguage, e.Value)
		}
		p.Language = code
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
	}
	return nil
}

// ParseFlag reads the verified selector. Anything unrecognized is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "evet":
		return true
	default:
		return false
	}
}

// Count is a non-negative engagement count. It decodes from JSON or YAML
// numbers and numeric strings; anything negative or malformed becomes 0.
type Count int64

// ParseCount coerces form input to a Count.
func ParseCount(s string) Count {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return CountOf(n)
	}
	// Number inputs can submit "12.0" or "1e3".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1<<62 {
		return Count(int64(f))
	}
	return 0
}

// CountOf converts n to a Count, clamping negatives to 0.
func CountOf(n int64) Count {
	if n < 0 {
		return 0
	}
	return Count(n)
}

// Int64 returns the count as an int64.
func (c Count) Int64() int64 {
	return int64(c)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (c *Count) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ParseCount(s)
		return nil
	}
	*c = ParseCount(string(data))
	return nil
}

// UnmarshalYAML accepts scalar nodes of any tag.
func (c *Count) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*c = 0
		return nil
	}
	*c = ParseCount(node.Value)
	return nil
}
