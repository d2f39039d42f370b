package snapshot

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackmichael/postmock/internal/card"
)

type fakeRaster struct {
	img   image.Image
	err   error
	calls int
}

func (f *fakeRaster) Rasterize(ctx context.Context, n *card.Node) (image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.img != nil {
		return f.img, nil
	}
	img := image.NewRGBA(n.Bounds())
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(3, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	return img, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func node(w, h int) *card.Node {
	return &card.Node{Width: w, Height: h}
}

func TestCaptureRoundTrip(t *testing.T) {
	p := NewPipeline(&fakeRaster{}, discard())

	a, err := p.Capture(context.Background(), node(598, 240))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if a.Width != 598 || a.Height != 240 {
		t.Errorf("artifact %dx%d", a.Width, a.Height)
	}

	img, err := Decode(a)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 598 || b.Dy() != 240 {
		t.Errorf("decoded bounds = %v", b)
	}
	if r, g, b, _ := img.At(3, 4).RGBA(); r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel changed through encode: %v", img.At(3, 4))
	}
	if !strings.HasPrefix(a.DataURI(), "data:image/png;base64,") {
		t.Errorf("data uri = %.30s", a.DataURI())
	}
}

func TestCaptureNoTarget(t *testing.T) {
	f := &fakeRaster{}
	p := NewPipeline(f, discard())

	for _, n := range []*card.Node{nil, node(0, 0), node(598, 0)} {
		a, err := p.Capture(context.Background(), n)
		if a != nil || err != nil {
			t.Errorf("Capture(%v) = %v, %v; want nil, nil", n, a, err)
		}
	}
	if f.calls != 0 {
		t.Errorf("rasterizer called %d times", f.calls)
	}
}

func TestCaptureErrors(t *testing.T) {
	boom := errors.New("boom")
	p := NewPipeline(&fakeRaster{err: boom}, discard())

	_, err := p.Capture(context.Background(), node(10, 10))
	if !errors.Is(err, ErrCapture) || !errors.Is(err, boom) {
		t.Errorf("err = %v, want ErrCapture wrapping boom", err)
	}
	if n := p.InFlight(); n != 0 {
		t.Errorf("InFlight() = %d after failure", n)
	}

	// A zero-size image fails PNG encoding.
	p = NewPipeline(&fakeRaster{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}, discard())
	if _, err := p.Capture(context.Background(), node(10, 10)); !errors.Is(err, ErrEncode) {
		t.Errorf("err = %v, want ErrEncode", err)
	}
}

// gatedRaster blocks every call until release is closed.
type gatedRaster struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedRaster) Rasterize(ctx context.Context, n *card.Node) (image.Image, error) {
	g.started <- struct{}{}
	<-g.release
	return image.NewRGBA(n.Bounds()), nil
}

func TestCaptureConcurrent(t *testing.T) {
	g := &gatedRaster{started: make(chan struct{}, 2), release: make(chan struct{})}
	p := NewPipelineLimit(g, 2, discard())

	done := make(chan *Artifact, 2)
	for i := 0; i < 2; i++ {
		go func() {
			a, err := p.Capture(context.Background(), node(10, 10))
			if err != nil {
				t.Errorf("Capture: %v", err)
			}
			done <- a
		}()
	}

	<-g.started
	<-g.started
	if n := p.InFlight(); n != 2 {
		t.Errorf("InFlight() = %d, want 2", n)
	}

	close(g.release)
	a1, a2 := <-done, <-done
	if a1 == nil || a2 == nil {
		t.Fatal("missing artifact")
	}
	if a1.Generation == a2.Generation {
		t.Errorf("both captures got generation %d", a1.Generation)
	}
	if n := p.InFlight(); n != 0 {
		t.Errorf("InFlight() = %d after captures", n)
	}
}

func TestCaptureWaitsForSlot(t *testing.T) {
	g := &gatedRaster{started: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewPipelineLimit(g, 1, discard())

	done := make(chan error, 1)
	go func() {
		_, err := p.Capture(context.Background(), node(10, 10))
		done <- err
	}()
	<-g.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Capture(ctx, node(10, 10)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("first capture: %v", err)
	}
}

func TestGenerationIncreases(t *testing.T) {
	p := NewPipeline(&fakeRaster{}, discard())

	a1, err := p.Capture(context.Background(), node(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	a2, err := p.Capture(context.Background(), node(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	if a2.Generation <= a1.Generation {
		t.Errorf("generations %d then %d", a1.Generation, a2.Generation)
	}
}

type recordSink struct {
	name, contentType string
	data              []byte
	calls             int
}

func (r *recordSink) Save(name, contentType string, data []byte) error {
	r.calls++
	r.name, r.contentType, r.data = name, contentType, data
	return nil
}

func TestDownload(t *testing.T) {
	a := &Artifact{PNG: []byte("png")}

	s := &recordSink{}
	if err := Download(a, "", s); err != nil {
		t.Fatal(err)
	}
	if s.calls != 1 || s.name != DefaultFilename || s.contentType != "image/png" || string(s.data) != "png" {
		t.Errorf("sink got %+v", s)
	}

	s = &recordSink{}
	if err := Download(nil, "x.png", s); err != nil || s.calls != 0 {
		t.Errorf("nil artifact: err=%v calls=%d", err, s.calls)
	}
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := DirSink{Dir: dir}

	if err := Download(&Artifact{PNG: []byte{1, 2, 3}}, "../tweet.png", sink); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "tweet.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("wrote %d bytes", len(got))
	}
}
