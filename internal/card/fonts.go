package card

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Style selects the face and color of a laid-out run.
type Style int

const (
	StyleBody Style = iota
	StyleAccent
	StyleName
	StyleHandle
	StyleStatValue
	StyleStatLabel
)

// Sizes in pixels.
const (
	nameSize = 15
	bodySize = 20
	statSize = 14
)

// Fonts holds the font sources used for measuring and painting. Sources are
// heavyweight; create one Fonts per process and share it.
type Fonts struct {
	Regular *text.FontSource
	Bold    *text.FontSource
}

// DefaultFonts loads the embedded Go fonts.
func DefaultFonts() (*Fonts, error) {
	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		regular.Close()
		return nil, fmt.Errorf("load bold font: %w", err)
	}
	return &Fonts{Regular: regular, Bold: bold}, nil
}

// LoadFonts reads TrueType files. An empty path uses the embedded font for
// that weight.
func LoadFonts(regularPath, boldPath string) (*Fonts, error) {
	fonts, err := DefaultFonts()
	if err != nil {
		return nil, err
	}

	if regularPath != "" {
		src, err := text.NewFontSourceFromFile(regularPath)
		if err != nil {
			fonts.Close()
			return nil, fmt.Errorf("load font %s: %w", regularPath, err)
		}
		fonts.Regular.Close()
		fonts.Regular = src
	}
	if boldPath != "" {
		src, err := text.NewFontSourceFromFile(boldPath)
		if err != nil {
			fonts.Close()
			return nil, fmt.Errorf("load font %s: %w", boldPath, err)
		}
		fonts.Bold.Close()
		fonts.Bold = src
	}
	return fonts, nil
}

// Face returns the face used for runs of the given style.
func (f *Fonts) Face(s Style) text.Face {
	switch s {
	case StyleName:
		return f.Bold.Face(nameSize)
	case StyleHandle:
		return f.Regular.Face(nameSize)
	case StyleStatValue:
		return f.Bold.Face(statSize)
	case StyleStatLabel:
		return f.Regular.Face(statSize)
	default:
		return f.Regular.Face(bodySize)
	}
}

// Close releases both sources.
func (f *Fonts) Close() error {
	return errors.Join(f.Regular.Close(), f.Bold.Close())
}
