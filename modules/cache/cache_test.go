package cache

import (
	"context"
	"testing"
	"time"

	"github.com/example/taskdesk/domain/chat"
	"github.com/example/taskdesk/modules/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires Redis running on localhost:6379; skipped otherwise.
const testRedisAddr = "localhost:6379"

var _ ledger.CountCache = (*UnseenCache)(nil)

func setupTestCache(t *testing.T, prefix string) *UnseenCache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	cleanupKeys(ctx, client, prefix+"*")
	t.Cleanup(func() {
		cleanupKeys(ctx, client, prefix+"*")
		_ = client.Close()
	})
	return New(client, prefix, time.Minute)
}

func cleanupKeys(ctx context.Context, client *redis.Client, pattern string) {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func TestUnseenCache_GetSetInvalidate(t *testing.T) {
	c := setupTestCache(t, "test:unseen:")
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "viewer")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "viewer", chat.UnseenCounts{"a": 2, "b": 1}))

	counts, ok, err := c.Get(ctx, "viewer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, chat.UnseenCounts{"a": 2, "b": 1}, counts)

	require.NoError(t, c.Invalidate(ctx, "viewer"))
	_, ok, err = c.Get(ctx, "viewer")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(1), stats.Sets)
	assert.Equal(t, uint64(1), stats.Deletes)
}

func TestUnseenCache_EmptyCountsAreAHit(t *testing.T) {
	c := setupTestCache(t, "test:unseen-empty:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "viewer", chat.UnseenCounts{}))
	counts, ok, err := c.Get(ctx, "viewer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, counts)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "127.0.0.1:1", "", time.Minute, nil)
	assert.Error(t, err)
}

func TestUnseenCache_InvalidateAll(t *testing.T) {
	c := setupTestCache(t, "test:unseen:all:")
	ctx := context.Background()

	for _, viewer := range []string{"v1", "v2", "v3"} {
		require.NoError(t, c.Set(ctx, viewer, chat.UnseenCounts{"x": 1}))
	}
	require.NoError(t, c.InvalidateAll(ctx))

	for _, viewer := range []string{"v1", "v2", "v3"} {
		_, ok, err := c.Get(ctx, viewer)
		require.NoError(t, err)
		assert.False(t, ok, viewer)
	}
	assert.Equal(t, uint64(3), c.GetStats().Deletes)
}
