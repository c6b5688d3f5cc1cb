// internal/search/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-search/internal/common/database"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"
	"marketplace-search/internal/models"
)

// RedisCache is the external tier. Backend failures degrade to a local
// LRU so a Redis outage costs hit rate, never availability.
type RedisCache struct {
	client *database.RedisClient
	local  *MemoryCache
	ttl    time.Duration
	logger logger.Logger
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

func NewRedisCache(client *database.RedisClient, localSize int, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		local:  NewMemoryCache(localSize, ttl),
		ttl:    ttl,
		logger: log,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.SearchResponse, bool) {
	raw, err := c.client.Get(ctx, key)
	if err == redis.Nil {
		c.misses.Add(1)
		metrics.SearchCacheEvents.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.errors.Add(1)
		metrics.SearchCacheEvents.WithLabelValues("error").Inc()
		c.logger.Warn("redis cache read failed, trying local tier", map[string]interface{}{
			"error": err.Error(),
		})
		return c.local.Get(ctx, key)
	}

	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		c.errors.Add(1)
		c.logger.Warn("corrupt cache entry dropped", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}

	c.hits.Add(1)
	metrics.SearchCacheEvents.WithLabelValues("hit").Inc()
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *models.SearchResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		c.errors.Add(1)
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl); err != nil {
		c.errors.Add(1)
		metrics.SearchCacheEvents.WithLabelValues("error").Inc()
		c.logger.Warn("redis cache write failed, storing locally", map[string]interface{}{
			"error": err.Error(),
		})
		c.local.Set(ctx, key, resp)
	}
}

func (c *RedisCache) Stats() Stats {
	return Stats{
		Backend: "redis",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Entries: c.local.lru.Len(),
	}
}
