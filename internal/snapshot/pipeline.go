// Package snapshot captures a laid-out card as a PNG artifact and hands it to
// a consumer.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/blackmichael/postmock/internal/card"
)

var (
	// ErrBusy reports an editor asking for a second export while its first
	// is still running.
	ErrBusy = errors.New("snapshot: export already in progress")

	// ErrCapture wraps rasterizer failures.
	ErrCapture = errors.New("snapshot: capture failed")

	// ErrEncode wraps PNG encoding failures.
	ErrEncode = errors.New("snapshot: encode failed")
)

// Rasterizer draws a node into an image the size the node occupies.
type Rasterizer interface {
	Rasterize(ctx context.Context, n *card.Node) (image.Image, error)
}

// Pipeline is safe for concurrent use. Captures beyond its limit wait for a
// free slot.
type Pipeline struct {
	raster Rasterizer
	logger *slog.Logger

	slots    chan struct{}
	inFlight atomic.Int32
	gen      atomic.Uint64
}

// NewPipeline returns a pipeline running up to GOMAXPROCS captures at once.
func NewPipeline(r Rasterizer, logger *slog.Logger) *Pipeline {
	return NewPipelineLimit(r, runtime.GOMAXPROCS(0), logger)
}

// NewPipelineLimit returns a pipeline running up to limit captures at once.
// A limit below one is treated as one.
func NewPipelineLimit(r Rasterizer, limit int, logger *slog.Logger) *Pipeline {
	if limit < 1 {
		limit = 1
	}
	return &Pipeline{raster: r, logger: logger, slots: make(chan struct{}, limit)}
}

// InFlight reports how many captures are rasterizing.
func (p *Pipeline) InFlight() int {
	return int(p.inFlight.Load())
}

// Capture rasterizes n and encodes it as PNG. A nil or unmounted node is a
// no-op and yields (nil, nil). When every slot is taken Capture waits, and
// returns ctx.Err() if ctx ends first.
func (p *Pipeline) Capture(ctx context.Context, n *card.Node) (*Artifact, error) {
	if !n.Mounted() {
		p.logger.Debug("capture skipped, no card mounted")
		return nil, nil
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		<-p.slots
	}()

	gen := p.gen.Add(1)
	log := p.logger.With("generation", gen)

	img, err := p.raster.Rasterize(ctx, n)
	if err != nil {
		log.Error("capture failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	pixels := toRGBA(img)
	data, err := Encode(pixels)
	if err != nil {
		log.Error("encode failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	b := pixels.Bounds()
	log.Info("captured card", "width", b.Dx(), "height", b.Dy(), "bytes", len(data))

	return &Artifact{
		Pixels:     pixels,
		PNG:        data,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Generation: gen,
	}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
