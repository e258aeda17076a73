// Package cache keeps per-viewer unseen message counts in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/taskdesk/domain/chat"
	"github.com/redis/go-redis/v9"
)

// UnseenCache stores chat.UnseenCounts per viewer.
type UnseenCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

// Stats tracks cache statistics.
type Stats struct {
	Hits    atomic.Uint64
	Misses  atomic.Uint64
	Sets    atomic.Uint64
	Deletes atomic.Uint64
	Errors  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	Deletes uint64  `json:"deletes"`
	Errors  uint64  `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// New creates an UnseenCache.
func New(client *redis.Client, prefix string, ttl time.Duration) *UnseenCache {
	return &UnseenCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *UnseenCache) key(viewerID string) string {
	return c.prefix + viewerID
}

// Get returns the cached counts for viewerID and whether they were found.
func (c *UnseenCache) Get(ctx context.Context, viewerID string) (chat.UnseenCounts, bool, error) {
	data, err := c.client.Get(ctx, c.key(viewerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.stats.Misses.Add(1)
			return nil, false, nil
		}
		c.stats.Errors.Add(1)
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var counts chat.UnseenCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		c.stats.Errors.Add(1)
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	if counts == nil {
		counts = chat.UnseenCounts{}
	}

	c.stats.Hits.Add(1)
	return counts, true, nil
}

// Set stores counts for viewerID with the cache TTL.
func (c *UnseenCache) Set(ctx context.Context, viewerID string, counts chat.UnseenCounts) error {
	data, err := json.Marshal(counts)
	if err != nil {
		c.stats.Errors.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(viewerID), data, c.ttl).Err(); err != nil {
		c.stats.Errors.Add(1)
		return fmt.Errorf("cache set error: %w", err)
	}

	c.stats.Sets.Add(1)
	return nil
}

// Invalidate drops the cached counts for viewerID.
func (c *UnseenCache) Invalidate(ctx context.Context, viewerID string) error {
	if err := c.client.Del(ctx, c.key(viewerID)).Err(); err != nil {
		c.stats.Errors.Add(1)
		return fmt.Errorf("cache delete error: %w", err)
	}

	c.stats.Deletes.Add(1)
	return nil
}

// InvalidateAll drops every viewer's cached counts.
func (c *UnseenCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	var deleted int

	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			c.stats.Errors.Add(1)
			return fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.stats.Errors.Add(1)
				return fmt.Errorf("cache delete error: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.stats.Deletes.Add(uint64(deleted))
	return nil
}

// GetStats returns the current cache statistics.
func (c *UnseenCache) GetStats() StatsSnapshot {
	hits := c.stats.Hits.Load()
	misses := c.stats.Misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return StatsSnapshot{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.stats.Sets.Load(),
		Deletes: c.stats.Deletes.Load(),
		Errors:  c.stats.Errors.Load(),
		HitRate: hitRate,
	}
}

// Ping checks if the Redis connection is healthy.
func (c *UnseenCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *UnseenCache) Close() error {
	return c.client.Close()
}
