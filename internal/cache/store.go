// Package cache keeps raw API payloads in SQLite so that repeated runs over
// the same table do not hit the Census API again.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
)

const schema = `CREATE TABLE IF NOT EXISTS payloads (
	request_key TEXT PRIMARY KEY,
	body        BLOB NOT NULL,
	created_at  INTEGER NOT NULL
)`

// Store persists payload bodies keyed by request.
type Store struct {
	sqlDB *sql.DB
	ttl   time.Duration
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the cache database at path. A ttl of zero
// keeps entries forever.
func Open(path string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, ttl: ttl, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the stored body for key. Expired entries are removed and
// reported as ErrCacheExpired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	var body []byte
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body, created_at FROM payloads WHERE request_key = ?`, key,
	).Scan(&body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(fromMillis(createdAt)) > s.ttl {
		if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM payloads WHERE request_key = ?`, key); err != nil {
			return nil, fmt.Errorf("delete expired cache entry: %w", err)
		}
		return nil, ErrCacheExpired
	}
	return body, nil
}

// Put stores body under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO payloads (request_key, body, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(request_key) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		key, body, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Purge removes every entry older than the TTL and returns how many went.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := toMillis(s.now().Add(-s.ttl))
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM payloads WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
