package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
)

// PostFile is a post document for the CLI.
//
//	display_name: Ada Lovelace
//	handle: ada
//	verified: true
//	body: "Merhaba #dünya"
//	likes: 12000
//	lang: tr
//	avatar_file: ada.png
//	lookup: ada.bsky.social
type PostFile struct {
	domain.Post `yaml:",inline"`

	// AvatarFile is a local image read into Post.Avatar.
	AvatarFile string `yaml:"avatar_file"`

	// Lookup, when set, fills the post from a remote profile first; fields
	// in the file then override it.
	Lookup string `yaml:"lookup"`

	// Filename is the output file name.
	Filename string `yaml:"filename"`
}

// LoadPostFile reads a YAML post document.
func LoadPostFile(path string) (*PostFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pf PostFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	pf.applyDefaults()
	return &pf, nil
}

func (pf *PostFile) applyDefaults() {
	if pf.Language == "" {
		pf.Language = locale.Primary
	}
	pf.Handle = strings.TrimPrefix(pf.Handle, "@")
	pf.Body = domain.TruncateBody(pf.Body)
	if pf.Filename == "" {
		pf.Filename = "tweet.png"
	}
}

// Overlay copies the fields set in the file onto p. Counts of zero and
// empty strings are treated as unset.
func (pf *PostFile) Overlay(p *domain.Post) {
	if pf.DisplayName != "" {
		p.DisplayName = pf.DisplayName
	}
	if pf.Handle != "" {
		p.Handle = pf.Handle
	}
	if pf.Verified {
		p.Verified = true
	}
	if pf.Body != "" {
		p.Body = pf.Body
	}
	if pf.Avatar != "" {
		p.Avatar = pf.Avatar
	}
	if pf.Retweets != 0 {
		p.Retweets = pf.Retweets
	}
	if pf.Quotes != 0 {
		p.Quotes = pf.Quotes
	}
	if pf.Likes != 0 {
		p.Likes = pf.Likes
	}
	p.Language = pf.Language
}
