package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func newMiniredisCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, nil), mr
}

func TestCacheRepositoryRoundTripAndExpiry(t *testing.T) {
	repo, mr := newMiniredisCache(t)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:x", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "dashboard:x", map[string]int{"total": 3}, time.Minute))
	require.NoError(t, repo.Get(ctx, "dashboard:x", &out))
	assert.Equal(t, 3, out["total"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:x", &out), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "dashboard:a", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:b", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "catalog:schemes", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	assert.False(t, mr.Exists("dashboard:a"))
	assert.False(t, mr.Exists("dashboard:b"))
	assert.True(t, mr.Exists("catalog:schemes"))
	require.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var out int
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", 1, time.Second))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
