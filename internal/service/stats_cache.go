package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsCacheKey = "appeal-service:workload-stats"

// StatsCache caches the workload report between sweeps of the admin
// console. Misses are never fatal.
type StatsCache interface {
	GetStats(ctx context.Context) (*WorkloadStats, bool)
	SetStats(ctx context.Context, stats *WorkloadStats)
}

// NoopStatsCache disables caching.
type NoopStatsCache struct{}

func (NoopStatsCache) GetStats(ctx context.Context) (*WorkloadStats, bool) { return nil, false }

func (NoopStatsCache) SetStats(ctx context.Context, stats *WorkloadStats) {}

// RedisStatsCache stores the report as JSON with a short TTL.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStatsCache builds the cache; a nil client yields a cache that
// always misses.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStatsCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisStatsCache) GetStats(ctx context.Context) (*WorkloadStats, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var stats WorkloadStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("discarding malformed stats cache entry", zap.Error(err))
		return nil, false
	}
	return &stats, true
}

func (c *RedisStatsCache) SetStats(ctx context.Context, stats *WorkloadStats) {
	if c == nil || c.client == nil || stats == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Debug("stats cache write failed", zap.Error(err))
	}
}
