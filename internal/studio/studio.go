// Package studio ties the post model to rendering, export and profile
// lookup. Transports (HTTP, WebSocket sessions, CLI, MCP) call into it.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/snapshot"
)

// ErrLookupDisabled is returned by lookups when no ProfileLookup is wired.
var ErrLookupDisabled = errors.New("profile lookup is not configured")

// Studio is safe for concurrent use. Posts are passed in by the caller and
// only Lookup mutates one.
type Studio struct {
	bundles  *locale.Store
	fonts    *card.Fonts
	pipeline *snapshot.Pipeline
	lookup   domain.ProfileLookup
	avatars  domain.AvatarFetcher
	logger   *slog.Logger
}

// New creates a Studio. lookup and avatars may be nil.
func New(
	bundles *locale.Store,
	fonts *card.Fonts,
	pipeline *snapshot.Pipeline,
	lookup domain.ProfileLookup,
	avatars domain.AvatarFetcher,
	logger *slog.Logger,
) *Studio {
	return &Studio{
		bundles:  bundles,
		fonts:    fonts,
		pipeline: pipeline,
		lookup:   lookup,
		avatars:  avatars,
		logger:   logger,
	}
}

// Locales returns the bundle store.
func (s *Studio) Locales() *locale.Store {
	return s.bundles
}

// Bundle returns the bundle for code, or the primary bundle when code is
// unknown.
func (s *Studio) Bundle(code locale.Code) locale.Bundle {
	return s.bundles.MustLookup(code)
}

// Preview derives the card view for p.
func (s *Studio) Preview(p domain.Post) card.View {
	return card.Build(p, s.Bundle(p.Language))
}

// Layout lays out the card for p.
func (s *Studio) Layout(p domain.Post) (*card.Node, error) {
	return card.Layout(s.Preview(p), s.fonts)
}

// Export captures the card for p. It is safe to call from many goroutines;
// the pipeline bounds how many captures run at once.
func (s *Studio) Export(ctx context.Context, p domain.Post) (*snapshot.Artifact, error) {
	node, err := s.Layout(p)
	if err != nil {
		return nil, fmt.Errorf("layout card: %w", err)
	}
	return s.pipeline.Capture(ctx, node)
}

// FetchProfile looks up query and fetches the profile image. The returned
// avatar is empty when the image could not be fetched; that is logged, not
// returned.
func (s *Studio) FetchProfile(ctx context.Context, query string) (*domain.Profile, string, error) {
	if s.lookup == nil {
		return nil, "", ErrLookupDisabled
	}

	prof, err := s.lookup.LookupProfile(ctx, query)
	if err != nil {
		s.logger.Warn("profile lookup failed", "query", query, "error", err)
		return nil, "", fmt.Errorf("lookup %q: %w", query, err)
	}

	var avatar string
	if prof.ProfileImageURL != "" && s.avatars != nil {
		avatar, err = s.avatars.FetchAvatar(ctx, prof.ProfileImageURL)
		if err != nil {
			s.logger.Warn("profile image fetch failed, keeping current avatar",
				"query", query,
				"url", prof.ProfileImageURL,
				"error", err,
			)
			avatar = ""
		}
	}

	s.logger.Info("profile looked up", "query", query, "screen_name", prof.ScreenName)
	return prof, avatar, nil
}

// Lookup fills p from the remote profile matching query. On error p is left
// unchanged.
func (s *Studio) Lookup(ctx context.Context, p *domain.Post, query string) error {
	prof, avatar, err := s.FetchProfile(ctx, query)
	if err != nil {
		return err
	}
	p.ApplyProfile(prof, avatar)
	return nil
}
