// internal/search/cache/cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketplace-search/internal/common/config"
	"marketplace-search/internal/common/database"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/models"
)

// Cache stores rendered result pages under version-stamped keys. Entries
// are never invalidated in place: weight or tenant version bumps change
// the key and stale entries age out through TTL.
type Cache interface {
	Get(ctx context.Context, key string) (*models.SearchResponse, bool)
	Set(ctx context.Context, key string, resp *models.SearchResponse)
	Stats() Stats
}

// Stats is a point-in-time counter snapshot for diagnostics endpoints.
type Stats struct {
	Backend string `json:"backend"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Errors  int64  `json:"errors"`
	Entries int    `json:"entries"`
}

// New selects the backend once at startup. An unknown backend falls back
// to memory rather than failing the process.
func New(cfg config.CacheConfig, redisClient *database.RedisClient, log logger.Logger) Cache {
	ttl := time.Duration(cfg.TTL) * time.Second
	switch cfg.Backend {
	case "redis":
		if redisClient != nil {
			return NewRedisCache(redisClient, cfg.LRUSize, ttl, log)
		}
		log.Warn("redis cache requested but no client available, using memory", nil)
		return NewMemoryCache(cfg.LRUSize, ttl)
	default:
		return NewMemoryCache(cfg.LRUSize, ttl)
	}
}

// BuildKey derives the cache key from the full request shape plus the
// weight and tenant versions. Two requests differing in any scoring
// input must never share a key.
func BuildKey(req *models.SearchRequest, weightVersion, tenantVersion int64) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(req.Query)))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(req.Category))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(req.Material))
	b.WriteByte('|')
	b.WriteString(canonicalFloats(req.Thickness))
	b.WriteByte('|')
	b.WriteString(optFloat(req.PriceMin))
	b.WriteByte('|')
	b.WriteString(optFloat(req.PriceMax))
	b.WriteByte('|')
	b.WriteString(optFloat(req.RatingMin))
	b.WriteByte('|')
	b.WriteString(string(req.Sort))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Page))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Limit))
	b.WriteByte('|')
	b.WriteString(canonicalStrings(req.Expand))
	b.WriteByte('|')
	b.WriteString(req.Mode)
	b.WriteByte('|')
	b.WriteString(req.RankWeights)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(weightVersion, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(tenantVersion, 10))

	sum := sha1.Sum([]byte(b.String()))
	return fmt.Sprintf("search:v1:%s:%s", req.Tenant, hex.EncodeToString(sum[:]))
}

func canonicalFloats(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func canonicalStrings(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
