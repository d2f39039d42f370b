package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAppView = "https://public.api.bsky.app"

// feedWindow is how many feed items LatestPost scans for an original post.
const feedWindow = 20

// ErrNotFound is returned when the AppView reports an unknown actor.
var ErrNotFound = errors.New("bluesky: actor not found")

// Client is a minimal read-only client for the public Bluesky AppView. It
// needs no authentication.
type Client struct {
	host       string
	httpClient *http.Client
}

// NewClient creates a new AppView client. If host is empty, it defaults to
// https://public.api.bsky.app.
func NewClient(host string, httpClient *http.Client) *Client {
	if host == "" {
		host = defaultAppView
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{host: host, httpClient: httpClient}
}

// ProfileView is the subset of app.bsky.actor.defs#profileViewDetailed the
// mockup uses.
type ProfileView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// PostView is the subset of app.bsky.feed.defs#postView the mockup uses.
type PostView struct {
	URI         string `json:"uri"`
	RepostCount int64  `json:"repostCount"`
	QuoteCount  int64  `json:"quoteCount"`
	LikeCount   int64  `json:"likeCount"`
	Record      struct {
		Text string `json:"text"`
	} `json:"record"`
}

// GetProfile fetches an actor by handle or DID via app.bsky.actor.getProfile.
func (c *Client) GetProfile(ctx context.Context, actor string) (*ProfileView, error) {
	var resp ProfileView
	if err := c.get(ctx, "/xrpc/app.bsky.actor.getProfile", url.Values{"actor": {actor}}, &resp); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &resp, nil
}

// LatestPost returns the actor's most recent original post, or nil when none
// of the newest feed items is one. Reposts carry a reason and are skipped.
func (c *Client) LatestPost(ctx context.Context, actor string) (*PostView, error) {
	params := url.Values{
		"actor":  {actor},
		"limit":  {strconv.Itoa(feedWindow)},
		"filter": {"posts_no_replies"},
	}

	var resp authorFeedResponse
	if err := c.get(ctx, "/xrpc/app.bsky.feed.getAuthorFeed", params, &resp); err != nil {
		return nil, fmt.Errorf("get author feed: %w", err)
	}
	for i := range resp.Feed {
		if resp.Feed[i].Reason != nil {
			continue
		}
		return &resp.Feed[i].Post, nil
	}
	return nil, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var xe xrpcError
		if json.Unmarshal(respBody, &xe) == nil && isNotFound(resp.StatusCode, xe) {
			return ErrNotFound
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func isNotFound(status int, xe xrpcError) bool {
	if status == http.StatusNotFound {
		return true
	}
	return xe.Error == "InvalidRequest" && xe.Message == "Profile not found"
}

type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type authorFeedResponse struct {
	Feed []struct {
		Post PostView `json:"post"`
		// Reason is set on reposts (app.bsky.feed.defs#reasonRepost).
		Reason json.RawMessage `json:"reason"`
	} `json:"feed"`
}
