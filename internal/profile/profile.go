// Package profile implements domain.ProfileLookup against remote services.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blackmichael/postmock/internal/bluesky"
	"github.com/blackmichael/postmock/internal/domain"
)

// Typeahead queries a user-search proxy that answers GET {base}?q={query}
// with a JSON array of profiles and takes the first one.
type Typeahead struct {
	base       string
	httpClient *http.Client
}

func NewTypeahead(base string, httpClient *http.Client) *Typeahead {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Typeahead{base: base, httpClient: httpClient}
}

func (t *Typeahead) LookupProfile(ctx context.Context, query string) (*domain.Profile, error) {
	u, err := url.Parse(t.base)
	if err != nil {
		return nil, fmt.Errorf("parse lookup url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lookup error (status %d): %s", resp.StatusCode, string(body))
	}

	var users []domain.Profile
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(users) == 0 {
		return nil, domain.ErrProfileNotFound
	}
	return &users[0], nil
}

// Bluesky builds a profile from an actor and their latest post on the
// public AppView.
type Bluesky struct {
	client *bluesky.Client
}

func NewBluesky(client *bluesky.Client) *Bluesky {
	return &Bluesky{client: client}
}

func (b *Bluesky) LookupProfile(ctx context.Context, query string) (*domain.Profile, error) {
	actor := strings.TrimPrefix(strings.TrimSpace(query), "@")
	if actor == "" {
		return nil, domain.ErrProfileNotFound
	}

	view, err := b.client.GetProfile(ctx, actor)
	if errors.Is(err, bluesky.ErrNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	prof := &domain.Profile{
		Name:            view.DisplayName,
		ScreenName:      view.Handle,
		ProfileImageURL: view.Avatar,
	}
	if prof.Name == "" {
		prof.Name = view.Handle
	}

	post, err := b.client.LatestPost(ctx, view.DID)
	if err != nil {
		return nil, err
	}
	if post != nil {
		prof.Status.Text = post.Record.Text
		prof.Status.RetweetCount = post.RepostCount
		prof.Status.FavoriteCount = post.LikeCount
	}
	return prof, nil
}
