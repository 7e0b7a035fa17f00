package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/statuscore/incident-registry/internal/models"
)

const statsCachePrefix = "incidents:stats:"

// RedisStatsCache caches statistics payloads keyed by the canonicalised
// filter. Cache failures degrade to a miss; they never fail the request.
type RedisStatsCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRedisStatsCache constructs the statistics cache.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *RedisStatsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStatsCache{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

// key canonicalises the filter. Pagination and ordering do not change
// the aggregate scope, so they are excluded.
func (c *RedisStatsCache) key(filter models.IncidentFilter) string {
	scoped := filter
	scoped.Page = 0
	scoped.PageSize = 0
	scoped.SortBy = ""
	scoped.SortOrder = ""

	raw, err := json.Marshal(scoped)
	if err != nil {
		return statsCachePrefix + "unkeyed"
	}
	sum := sha256.Sum256(raw)
	return statsCachePrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached statistics for the filter, if present.
func (c *RedisStatsCache) Get(ctx context.Context, filter models.IncidentFilter) (*models.Statistics, bool) {
	start := time.Now()
	raw, err := c.client.Get(ctx, c.key(filter)).Bytes()
	hit := err == nil
	c.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("stats cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var stats models.Statistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("stats cache payload corrupt", zap.Error(err))
		return nil, false
	}
	return &stats, true
}

// Set stores the statistics for the filter with the configured TTL.
func (c *RedisStatsCache) Set(ctx context.Context, filter models.IncidentFilter, stats *models.Statistics) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	start := time.Now()
	if err := c.client.Set(ctx, c.key(filter), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.Error(err))
		return
	}
	c.metrics.ObserveCacheWrite(time.Since(start))
}
