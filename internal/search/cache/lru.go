// internal/search/cache/lru.go
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"marketplace-search/internal/common/metrics"
	"marketplace-search/internal/models"
)

// MemoryCache is the in-process tier: a size-bounded LRU with per-entry
// TTL expiry. Cached responses are treated as immutable after Set.
type MemoryCache struct {
	lru    *expirable.LRU[string, *models.SearchResponse]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 512
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *models.SearchResponse](size, nil, ttl),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.SearchResponse, bool) {
	resp, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
		metrics.SearchCacheEvents.WithLabelValues("hit").Inc()
		return resp, true
	}
	c.misses.Add(1)
	metrics.SearchCacheEvents.WithLabelValues("miss").Inc()
	return nil, false
}

func (c *MemoryCache) Set(_ context.Context, key string, resp *models.SearchResponse) {
	c.lru.Add(key, resp)
}

func (c *MemoryCache) Stats() Stats {
	return Stats{
		Backend: "memory",
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}
