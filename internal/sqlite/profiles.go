package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/blackmichael/postmock/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS profiles (
		query      TEXT PRIMARY KEY,
		profile    TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	)`

// ProfileCache implements domain.ProfileLookup in front of another lookup,
// keeping found profiles in an in-memory SQLite table. Failed lookups are
// never cached.
type ProfileCache struct {
	db      *sql.DB
	next    domain.ProfileLookup
	ttl     time.Duration
	maxRows int
	logger  *slog.Logger
	now     func() time.Time
}

// NewProfileCache opens an in-memory database and returns a cache over
// next. The caller should call Close when the cache is no longer needed.
func NewProfileCache(next domain.ProfileLookup, ttl time.Duration, maxRows int, logger *slog.Logger) (*ProfileCache, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &ProfileCache{
		db:      db,
		next:    next,
		ttl:     ttl,
		maxRows: maxRows,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Close closes the underlying database.
func (c *ProfileCache) Close() error {
	return c.db.Close()
}

// LookupProfile returns a fresh cached profile for query or asks the wrapped
// lookup and stores its answer.
func (c *ProfileCache) LookupProfile(ctx context.Context, query string) (*domain.Profile, error) {
	key := cacheKey(query)

	p, err := c.get(ctx, key)
	if err != nil {
		c.logger.Warn("profile cache read failed", "query", key, "error", err)
	}
	if p != nil {
		c.logger.Debug("profile cache hit", "query", key)
		return p, nil
	}

	p, err = c.next.LookupProfile(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := c.put(ctx, key, p); err != nil {
		c.logger.Warn("profile cache write failed", "query", key, "error", err)
		return p, nil
	}
	if _, err := c.Prune(ctx); err != nil {
		c.logger.Warn("profile cache prune failed", "error", err)
	}
	return p, nil
}

func (c *ProfileCache) get(ctx context.Context, key string) (*domain.Profile, error) {
	var (
		raw       string
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT profile, fetched_at FROM profiles WHERE query = ?`, key,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if c.now().Sub(time.UnixMilli(fetchedAt)) >= c.ttl {
		return nil, nil
	}

	var p domain.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) put(ctx context.Context, key string, p *domain.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO profiles (query, profile, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT (query) DO UPDATE SET profile = excluded.profile, fetched_at = excluded.fetched_at`,
		key, string(raw), c.now().UnixMilli(),
	)
	return err
}

// Prune removes entries older than the TTL and any excess rows beyond the
// size cap, keeping the most recent. Returns the number of rows deleted.
func (c *ProfileCache) Prune(ctx context.Context) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM profiles WHERE fetched_at <= ?`,
		c.now().Add(-c.ttl).UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired profiles: %w", err)
	}
	expired, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		DELETE FROM profiles WHERE query IN (
			SELECT query FROM profiles
			ORDER BY fetched_at DESC, query
			LIMIT -1 OFFSET ?
		)`, c.maxRows,
	)
	if err != nil {
		return 0, fmt.Errorf("delete excess profiles: %w", err)
	}
	excess, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return expired + excess, nil
}

// cacheKey folds the spellings of one handle together.
func cacheKey(query string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "@"))
}
