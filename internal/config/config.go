package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Profile lookup providers.
const (
	ProviderNone      = "none"
	ProviderBluesky   = "bluesky"
	ProviderTypeahead = "typeahead"
)

// Rasterizers.
const (
	RasterNative = "native"
	RasterChrome = "chrome"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// LogLevel is the minimum level logged.
	LogLevel slog.Level

	// ProfileProvider selects the remote profile lookup: none, bluesky or
	// typeahead.
	ProfileProvider string

	// ProfileURL is the AppView host for bluesky or the search endpoint for
	// typeahead. Empty uses the public AppView.
	ProfileURL string

	// LookupTimeout bounds a profile lookup including the avatar fetch.
	LookupTimeout time.Duration

	// LookupCacheTTL is how long a found profile is reused. Zero disables
	// the cache.
	LookupCacheTTL time.Duration

	// LookupCacheSize caps the cached profiles.
	LookupCacheSize int

	// Rasterizer selects how exports are drawn: native or chrome.
	Rasterizer string

	// ChromeURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local one.
	ChromeURL string

	// FontRegular and FontBold are optional TrueType paths for the native
	// rasterizer.
	FontRegular string
	FontBold    string

	// ExportConcurrency caps the captures running at once across all
	// requests and sessions. Further exports wait for a free slot.
	ExportConcurrency int

	// ExportFilename is the name exports are delivered under.
	ExportFilename string

	// MaxUploadBytes caps avatar uploads.
	MaxUploadBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := 3000
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	var level slog.Level
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if err := level.UnmarshalText([]byte(l)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	provider := strings.ToLower(os.Getenv("POSTMOCK_PROFILE_PROVIDER"))
	switch provider {
	case "":
		provider = ProviderBluesky
	case ProviderNone, ProviderBluesky, ProviderTypeahead:
	default:
		return nil, fmt.Errorf("invalid POSTMOCK_PROFILE_PROVIDER %q", provider)
	}

	profileURL := os.Getenv("POSTMOCK_PROFILE_URL")
	if provider == ProviderTypeahead && profileURL == "" {
		return nil, fmt.Errorf("POSTMOCK_PROFILE_URL is required for the typeahead provider")
	}

	lookupTimeout := 15 * time.Second
	if t := os.Getenv("POSTMOCK_LOOKUP_TIMEOUT"); t != "" {
		var err error
		lookupTimeout, err = time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("invalid POSTMOCK_LOOKUP_TIMEOUT: %w", err)
		}
	}

	cacheTTL := 10 * time.Minute
	if t := os.Getenv("POSTMOCK_LOOKUP_CACHE_TTL"); t != "" {
		var err error
		cacheTTL, err = time.ParseDuration(t)
		if err != nil || cacheTTL < 0 {
			return nil, fmt.Errorf("invalid POSTMOCK_LOOKUP_CACHE_TTL %q", t)
		}
	}

	cacheSize := 256
	if n := os.Getenv("POSTMOCK_LOOKUP_CACHE_SIZE"); n != "" {
		var err error
		cacheSize, err = strconv.Atoi(n)
		if err != nil || cacheSize <= 0 {
			return nil, fmt.Errorf("invalid POSTMOCK_LOOKUP_CACHE_SIZE %q", n)
		}
	}

	raster := strings.ToLower(os.Getenv("POSTMOCK_RASTERIZER"))
	switch raster {
	case "":
		raster = RasterNative
	case RasterNative, RasterChrome:
	default:
		return nil, fmt.Errorf("invalid POSTMOCK_RASTERIZER %q", raster)
	}

	exportConcurrency := runtime.GOMAXPROCS(0)
	if n := os.Getenv("POSTMOCK_EXPORT_CONCURRENCY"); n != "" {
		var err error
		exportConcurrency, err = strconv.Atoi(n)
		if err != nil || exportConcurrency <= 0 {
			return nil, fmt.Errorf("invalid POSTMOCK_EXPORT_CONCURRENCY %q", n)
		}
	}

	filename := os.Getenv("POSTMOCK_EXPORT_FILENAME")
	if filename == "" {
		filename = "tweet.png"
	}

	maxUpload := int64(5 << 20)
	if m := os.Getenv("POSTMOCK_MAX_UPLOAD_BYTES"); m != "" {
		var err error
		maxUpload, err = strconv.ParseInt(m, 10, 64)
		if err != nil || maxUpload <= 0 {
			return nil, fmt.Errorf("invalid POSTMOCK_MAX_UPLOAD_BYTES %q", m)
		}
	}

	return &Config{
		Port:              port,
		LogLevel:          level,
		ProfileProvider:   provider,
		ProfileURL:        profileURL,
		LookupTimeout:     lookupTimeout,
		LookupCacheTTL:    cacheTTL,
		LookupCacheSize:   cacheSize,
		Rasterizer:        raster,
		ChromeURL:         os.Getenv("CHROME_URL"),
		FontRegular:       os.Getenv("POSTMOCK_FONT_REGULAR"),
		FontBold:          os.Getenv("POSTMOCK_FONT_BOLD"),
		ExportConcurrency: exportConcurrency,
		ExportFilename:    filename,
		MaxUploadBytes:    maxUpload,
	}, nil
}
