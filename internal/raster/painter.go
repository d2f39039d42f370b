// Package raster turns a laid-out card into pixels. Painter draws natively
// with gg; Chrome renders the card's HTML in a headless browser and
// screenshots the card element.
package raster

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gg"

	"github.com/blackmichael/postmock/internal/card"
)

// Palette.
const (
	colorText      = "#0f1419"
	colorMuted     = "#536471"
	colorAccent    = "#1d9bf0"
	colorDivider   = "#eff3f4"
	colorPlacehold = "#cfd9de"
)

const actionRadius = 9

// Painter rasterizes cards on the CPU. It is safe for concurrent use; each
// call gets its own drawing context.
type Painter struct {
	logger *slog.Logger
}

func NewPainter(logger *slog.Logger) *Painter {
	return &Painter{logger: logger}
}

// Rasterize draws n at its laid-out size.
func (p *Painter) Rasterize(ctx context.Context, n *card.Node) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.Mounted() {
		return nil, fmt.Errorf("paint: node has no size")
	}

	dc := gg.NewContext(n.Width, n.Height)
	defer dc.Close()
	dc.ClearWithColor(gg.White)

	if err := paintAvatar(dc, n); err != nil {
		return nil, err
	}
	if err := paintBadge(dc, n.Badge); err != nil {
		return nil, err
	}

	for _, r := range n.Runs {
		dc.SetFont(n.Fonts.Face(r.Style))
		dc.SetHexColor(runColor(r.Style))
		dc.DrawString(r.Text, r.X, r.Y)
	}

	dc.SetHexColor(colorDivider)
	dc.SetLineWidth(1)
	for _, y := range n.Dividers {
		dc.DrawLine(card.Padding, y+0.5, float64(n.Width-card.Padding), y+0.5)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("paint divider: %w", err)
		}
	}

	dc.SetHexColor(colorMuted)
	dc.SetLineWidth(1.5)
	for _, pt := range n.Actions {
		dc.DrawCircle(float64(pt.X), float64(pt.Y), actionRadius)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("paint action: %w", err)
		}
	}

	if err := dc.FlushGPU(); err != nil {
		p.logger.Debug("flush gpu", "error", err)
	}
	return dc.Image(), nil
}

func paintAvatar(dc *gg.Context, n *card.Node) error {
	box := n.AvatarBox
	if n.Avatar != nil {
		dc.DrawImage(gg.ImageBufFromImage(n.Avatar), float64(box.Min.X), float64(box.Min.Y))
		return nil
	}

	r := float64(box.Dx()) / 2
	dc.SetHexColor(colorPlacehold)
	dc.DrawCircle(float64(box.Min.X)+r, float64(box.Min.Y)+r, r)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("paint avatar placeholder: %w", err)
	}
	return nil
}

// paintBadge draws a filled disc with a check mark inside box.
func paintBadge(dc *gg.Context, box image.Rectangle) error {
	if box.Empty() {
		return nil
	}

	r := float64(box.Dx()) / 2
	cx, cy := float64(box.Min.X)+r, float64(box.Min.Y)+r
	dc.SetHexColor(colorAccent)
	dc.DrawCircle(cx, cy, r)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("paint badge: %w", err)
	}

	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(2)
	dc.MoveTo(cx-r*0.45, cy)
	dc.LineTo(cx-r*0.1, cy+r*0.35)
	dc.LineTo(cx+r*0.45, cy-r*0.3)
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("paint badge check: %w", err)
	}
	return nil
}

func runColor(s card.Style) string {
	switch s {
	case card.StyleAccent:
		return colorAccent
	case card.StyleHandle, card.StyleStatLabel:
		return colorMuted
	default:
		return colorText
	}
}
