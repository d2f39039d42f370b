package studio

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/blackmichael/postmock/internal/avatar"
	"github.com/blackmichael/postmock/internal/bluesky"
	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/config"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/profile"
	"github.com/blackmichael/postmock/internal/raster"
	"github.com/blackmichael/postmock/internal/snapshot"
	"github.com/blackmichael/postmock/internal/sqlite"
)

// FromConfig builds a Studio with the fonts, rasterizer and profile lookup
// cfg selects. The returned func releases fonts, the browser and the lookup
// cache.
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Studio, func() error, error) {
	fonts, err := card.LoadFonts(cfg.FontRegular, cfg.FontBold)
	if err != nil {
		return nil, nil, fmt.Errorf("load fonts: %w", err)
	}

	closers := []func() error{fonts.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var rasterizer snapshot.Rasterizer
	if cfg.Rasterizer == config.RasterChrome {
		chrome := raster.NewChrome(raster.ChromeConfig{RemoteURL: cfg.ChromeURL, Logger: logger})
		closers = append(closers, chrome.Close)
		rasterizer = chrome
	} else {
		rasterizer = raster.NewPainter(logger)
	}

	httpClient := &http.Client{Timeout: cfg.LookupTimeout}

	var lookup domain.ProfileLookup
	switch cfg.ProfileProvider {
	case config.ProviderTypeahead:
		lookup = profile.NewTypeahead(cfg.ProfileURL, httpClient)
	case config.ProviderBluesky:
		lookup = profile.NewBluesky(bluesky.NewClient(cfg.ProfileURL, httpClient))
	}
	if lookup != nil && cfg.LookupCacheTTL > 0 {
		cache, err := sqlite.NewProfileCache(lookup, cfg.LookupCacheTTL, cfg.LookupCacheSize, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create profile cache: %w", err)
		}
		closers = append(closers, cache.Close)
		lookup = cache
	}

	logger.Debug("studio configured",
		"rasterizer", cfg.Rasterizer,
		"profile_provider", cfg.ProfileProvider,
		"lookup_cache_ttl", cfg.LookupCacheTTL,
		"export_concurrency", cfg.ExportConcurrency,
	)

	st := New(
		locale.NewStore(),
		fonts,
		snapshot.NewPipelineLimit(rasterizer, cfg.ExportConcurrency, logger),
		lookup,
		avatar.NewFetcher(httpClient),
		logger,
	)
	return st, closeAll, nil
}
