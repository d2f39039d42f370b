package domain

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned by a ProfileLookup when the query matched
// no account.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileLookup finds a remote account by a free-text handle or query.
type ProfileLookup interface {
	// LookupProfile returns the best match for query. Implementations do not
	// retry; callers leave the Post unchanged on any error.
	LookupProfile(ctx context.Context, query string) (*Profile, error)
}

// AvatarFetcher turns a remote image URL into a data URI.
type AvatarFetcher interface {
	FetchAvatar(ctx context.Context, url string) (string, error)
}
