// Package avatar converts uploaded or remote images into data URIs and back
// into decoded images for rendering.
package avatar

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultLimit caps the size of an ingested image.
	DefaultLimit = 5 << 20

	// MaxDimension caps the width and height of an image that gets decoded.
	// A small file can declare a far larger canvas.
	MaxDimension = 4096
)

var (
	// ErrNotImage is returned when the input does not sniff as an image.
	ErrNotImage = errors.New("avatar: not an image")

	// ErrTooLarge is returned when the input exceeds the read limit.
	ErrTooLarge = errors.New("avatar: image too large")

	// ErrBadDataURI is returned by Decode for malformed data URIs.
	ErrBadDataURI = errors.New("avatar: malformed data URI")

	// ErrDimensions is returned for images wider or taller than
	// MaxDimension. It wraps ErrTooLarge.
	ErrDimensions = fmt.Errorf("%w: dimensions exceed %dx%d", ErrTooLarge, MaxDimension, MaxDimension)
)

// FromReader reads a single image (at most limit bytes) and returns it as a
// base64 data URI. The content type is sniffed, not trusted.
func FromReader(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	return Encode(data)
}

// Encode wraps raw image bytes in a data URI. The image header must parse
// and stay within MaxDimension.
func Encode(data []byte) (string, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	if err := checkDimensions(data); err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Fetcher downloads remote avatars.
type Fetcher struct {
	httpClient *http.Client
	limit      int64
}

// NewFetcher creates a Fetcher. A nil client gets a 15 second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{httpClient: client, limit: DefaultLimit}
}

// FetchAvatar downloads url and returns it as a data URI.
func (f *Fetcher) FetchAvatar(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}

	return FromReader(resp.Body, f.limit)
}

// Decode parses a base64 data URI and decodes the image inside it.
func Decode(dataURI string) (image.Image, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return nil, ErrBadDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrBadDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURI, err)
	}

	if err := checkDimensions(data); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// checkDimensions reads only the image header.
func checkDimensions(data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: %s is %dx%d", ErrDimensions, format, cfg.Width, cfg.Height)
	}
	return nil
}

// Fit scales img to a size x size square, cropping the longer side from the
// center first.
func Fit(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)
	return dst
}

// Circle scales img with Fit and masks it to a disc.
func Circle(img image.Image, size int) *image.RGBA {
	square := Fit(img, size)
	out := image.NewRGBA(square.Bounds())
	draw.DrawMask(out, out.Bounds(), square, image.Point{}, disc(size), image.Point{}, draw.Over)
	return out
}

// disc is an alpha mask of a circle inscribed in a size x size square.
func disc(size int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := range size {
		for x := range size {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy <= r*r {
				mask.SetAlpha(x, y, color.Alpha{A: 0xff})
			}
		}
	}
	return mask
}
