package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/blackmichael/postmock/internal/card"
)

// ChromeConfig configures the browser rasterizer.
type ChromeConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local headless Chrome on first use.
	RemoteURL string

	// Timeout bounds a single capture. Default: 30s.
	Timeout time.Duration

	Logger *slog.Logger
}

func (c *ChromeConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Chrome screenshots the card element of the rendered card document. The
// browser is started lazily and shared across captures.
type Chrome struct {
	cfg     ChromeConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

func NewChrome(cfg ChromeConfig) *Chrome {
	cfg.defaults()
	return &Chrome{cfg: cfg}
}

// Rasterize loads n's document into a fresh tab and captures the card
// element as it appears on screen.
func (c *Chrome) Rasterize(ctx context.Context, n *card.Node) (image.Image, error) {
	if !n.Mounted() {
		return nil, errors.New("chrome: node has no size")
	}

	doc, err := card.HTML(n.View)
	if err != nil {
		return nil, err
	}

	b, err := c.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("chrome: create tab: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx)
	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             card.Width,
		Height:            n.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("chrome: set viewport: %w", err)
	}
	if err := p.SetDocumentContent(doc); err != nil {
		return nil, fmt.Errorf("chrome: load document: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		c.cfg.Logger.Warn("chrome: wait load", "error", err)
	}

	el, err := p.Element("." + card.RootClass)
	if err != nil {
		return nil, fmt.Errorf("chrome: find card: %w", err)
	}
	data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("chrome: screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("chrome: decode screenshot: %w", err)
	}
	return img, nil
}

// Close shuts the browser down. A closed Chrome refuses further captures.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.cleanup()
}

func (c *Chrome) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("chrome: closed")
	}
	if c.browser != nil {
		return c.browser, nil
	}

	wsURL := c.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("chrome: launch: %w", err)
		}
		wsURL = u
		c.lnch = l
		c.cfg.Logger.Info("chrome: launched local browser", "url", wsURL)
	} else {
		c.cfg.Logger.Info("chrome: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		c.cleanup()
		return nil, fmt.Errorf("chrome: connect: %w", err)
	}
	c.browser = b
	return b, nil
}

func (c *Chrome) cleanup() error {
	var err error
	if c.browser != nil {
		err = c.browser.Close()
		c.browser = nil
	}
	if c.lnch != nil {
		c.lnch.Cleanup()
		c.lnch = nil
	}
	return err
}
