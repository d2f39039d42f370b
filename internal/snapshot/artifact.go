package snapshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

const (
	// DefaultFilename is the name artifacts are delivered under.
	DefaultFilename = "tweet.png"

	ContentType = "image/png"
)

// Artifact is one captured image. It is never cached or reused.
type Artifact struct {
	Pixels     *image.RGBA
	PNG        []byte
	Width      int
	Height     int
	Generation uint64
}

// DataURI returns the PNG as a base64 data URI.
func (a *Artifact) DataURI() string {
	return "data:" + ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.PNG)
}

// Encode writes img as PNG. The encoding is lossless.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads the artifact's PNG back into an image.
func Decode(a *Artifact) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(a.PNG))
	if err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return img, nil
}

// Sink receives a finished artifact.
type Sink interface {
	Save(filename, contentType string, data []byte) error
}

// Download hands a to sink once under filename, or DefaultFilename when
// filename is empty. A nil artifact is a no-op.
func Download(a *Artifact, filename string, sink Sink) error {
	if a == nil {
		return nil
	}
	if filename == "" {
		filename = DefaultFilename
	}
	if err := sink.Save(filename, ContentType, a.PNG); err != nil {
		return fmt.Errorf("deliver %s: %w", filename, err)
	}
	return nil
}

// DirSink writes artifacts into a directory, creating it when needed.
type DirSink struct {
	Dir string
}

// Path is where Save puts filename.
func (d DirSink) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

func (d DirSink) Save(filename, _ string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.Path(filename), data, 0o644)
}
