package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// CacheModule owns the Redis connection backing the unseen count cache.
type CacheModule struct {
	cache     *UnseenCache
	redisAddr string
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*CacheModule)(nil)
var _ mono.HealthCheckableModule = (*CacheModule)(nil)

// Connect dials Redis and returns a module wrapping the cache. An error means
// Redis is unreachable; callers fall back to uncached counts.
func Connect(ctx context.Context, redisAddr, password string, ttl time.Duration, logger types.Logger) (*CacheModule, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     password,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheModule{
		cache:     New(client, "unseen:", ttl),
		redisAddr: redisAddr,
		logger:    logger,
	}, nil
}

// Name returns the module name.
func (m *CacheModule) Name() string {
	return "cache"
}

// Start starts the module.
func (m *CacheModule) Start(_ context.Context) error {
	m.logger.Info("Cache module started", "redis", m.redisAddr, "ttl", m.cache.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *CacheModule) Stop(_ context.Context) error {
	if err := m.cache.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	m.logger.Info("Cache module stopped")
	return nil
}

// Health pings Redis and reports cache statistics.
func (m *CacheModule) Health(ctx context.Context) mono.HealthStatus {
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis": m.redisAddr,
			"stats": m.cache.GetStats(),
		},
	}
}

// Cache returns the unseen count cache.
func (m *CacheModule) Cache() *UnseenCache {
	return m.cache
}
