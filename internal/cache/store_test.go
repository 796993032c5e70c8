package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "payloads.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 0)

	_, err := s.Get(ctx, "req")
	require.ErrorIs(t, err, ErrCacheNotFound)

	require.NoError(t, s.Put(ctx, "req", []byte(`[["tract"]]`)))
	body, err := s.Get(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, `[["tract"]]`, string(body))

	require.NoError(t, s.Put(ctx, "req", []byte(`[["tract"],["010100"]]`)))
	body, err = s.Get(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, `[["tract"],["010100"]]`, string(body))
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, "old", []byte("a")))

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, s.Put(ctx, "fresh", []byte("b")))
	_, err := s.Get(ctx, "old")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = s.Get(ctx, "old")
	require.ErrorIs(t, err, ErrCacheExpired)
	_, err = s.Get(ctx, "old")
	require.ErrorIs(t, err, ErrCacheNotFound)
}

func TestStorePurge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, "a", []byte("a")))
	require.NoError(t, s.Put(ctx, "b", []byte("b")))

	s.now = func() time.Time { return base.Add(90 * time.Minute) }
	require.NoError(t, s.Put(ctx, "c", []byte("c")))

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = s.Get(ctx, "c")
	require.NoError(t, err)
}

func TestStoreInvalidKey(t *testing.T) {
	s := openTestStore(t, 0)
	_, err := s.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidCacheKey)
	require.ErrorIs(t, s.Put(context.Background(), "", nil), ErrInvalidCacheKey)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ", 0)
	require.Error(t, err)
}
