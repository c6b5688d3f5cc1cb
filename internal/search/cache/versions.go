// internal/search/cache/versions.go
package cache

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"marketplace-search/internal/common/database"
	"marketplace-search/internal/common/logger"
)

// Versions tracks a monotonic counter per tenant. Bumping it rotates
// every cache key for that tenant without touching stored entries.
type Versions interface {
	Current(ctx context.Context, tenant string) int64
	Bump(ctx context.Context, tenant string) (int64, error)
}

// ==========================
// Memory-backed versions
// ==========================

type MemoryVersions struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryVersions() *MemoryVersions {
	return &MemoryVersions{counters: make(map[string]int64)}
}

func (v *MemoryVersions) Current(_ context.Context, tenant string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counters[tenant]
}

func (v *MemoryVersions) Bump(_ context.Context, tenant string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.counters[tenant]++
	return v.counters[tenant], nil
}

// ==========================
// Redis-backed versions
// ==========================

// RedisVersions keeps counters in Redis so all replicas agree. Reads
// fall back to a local shadow copy when Redis is unreachable; bumps
// update both so the fallback stays close to current.
type RedisVersions struct {
	client *database.RedisClient
	shadow *MemoryVersions
	logger logger.Logger
}

func NewRedisVersions(client *database.RedisClient, log logger.Logger) *RedisVersions {
	return &RedisVersions{
		client: client,
		shadow: NewMemoryVersions(),
		logger: log,
	}
}

func versionKey(tenant string) string {
	return "search:tenant-version:" + tenant
}

func (v *RedisVersions) Current(ctx context.Context, tenant string) int64 {
	raw, err := v.client.Get(ctx, versionKey(tenant))
	if err == redis.Nil {
		return 0
	}
	if err != nil {
		v.logger.Warn("tenant version read failed, using local shadow", map[string]interface{}{
			"tenant": tenant,
			"error":  err.Error(),
		})
		return v.shadow.Current(ctx, tenant)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return v.shadow.Current(ctx, tenant)
	}
	return version
}

func (v *RedisVersions) Bump(ctx context.Context, tenant string) (int64, error) {
	version, err := v.client.Incr(ctx, versionKey(tenant))
	if err != nil {
		v.logger.Warn("tenant version bump failed in redis, bumping local shadow", map[string]interface{}{
			"tenant": tenant,
			"error":  err.Error(),
		})
		return v.shadow.Bump(ctx, tenant)
	}
	v.shadow.mu.Lock()
	v.shadow.counters[tenant] = version
	v.shadow.mu.Unlock()
	return version, nil
}

// NewVersions mirrors the cache factory: redis when a client is wired,
// memory otherwise.
func NewVersions(backend string, client *database.RedisClient, log logger.Logger) Versions {
	if backend == "redis" && client != nil {
		return NewRedisVersions(client, log)
	}
	return NewMemoryVersions()
}
