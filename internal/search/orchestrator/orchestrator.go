// internal/search/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"marketplace-search/internal/common/config"
	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"
	"marketplace-search/internal/models"
	"marketplace-search/internal/search/cache"
	"marketplace-search/internal/search/fuzzy"
	"marketplace-search/internal/search/rank"
	"marketplace-search/internal/search/signals"
	"marketplace-search/internal/search/tuner"
)

const (
	prefixFallbackMinLen = 4
	prefixKeepRatio      = 0.6
	prefixMinChars       = 2
)

// Orchestrator runs the query pipeline: cache lookup, exact search,
// prefix fallback, then fuzzy matching, caching the rendered page at the
// end under the key the original request hashed to.
type Orchestrator struct {
	aggregator *rank.Aggregator
	tuner      *tuner.Tuner
	cache      cache.Cache
	versions   cache.Versions
	fuzzyIndex *fuzzy.Index
	signals    *signals.Store
	cfg        config.SearchConfig
	logger     logger.Logger
}

func New(
	aggregator *rank.Aggregator,
	tn *tuner.Tuner,
	pageCache cache.Cache,
	versions cache.Versions,
	fuzzyIndex *fuzzy.Index,
	signalStore *signals.Store,
	cfg config.SearchConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		aggregator: aggregator,
		tuner:      tn,
		cache:      pageCache,
		versions:   versions,
		fuzzyIndex: fuzzyIndex,
		signals:    signalStore,
		cfg:        cfg,
		logger:     log,
	}
}

// Search executes one request end to end.
func (o *Orchestrator) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	requestID := uuid.New().String()
	log := o.logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"tenant":     req.Tenant,
	})

	if err := o.validate(req); err != nil {
		return nil, err
	}

	budget := time.Duration(o.cfg.QueryTimeout) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	weights, weightVersion, err := o.resolveWeights(req)
	if err != nil {
		return nil, err
	}

	metrics.SearchRequests.WithLabelValues(req.Tenant, string(sortOrDefault(req.Sort))).Inc()

	cacheState := models.CacheSkip
	var key string
	if o.cacheable(req) {
		key = cache.BuildKey(req, weightVersion, o.versions.Current(ctx, req.Tenant))
		if cached, ok := o.cache.Get(ctx, key); ok {
			log.Debug("serving cached page", map[string]interface{}{"key": key})
			hit := *cached
			hit.Meta.Cache = models.CacheHit
			return &hit, nil
		}
		cacheState = models.CacheMiss
	}

	resp, err := o.runPipeline(ctx, req, weights, log)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewSearchTimeoutError(budget)
		}
		return nil, err
	}

	resp.Meta.WeightVersion = weightVersion
	resp.Meta.Cache = cacheState

	// Degraded and fuzzy pages are transient shapes; caching them would
	// pin a bad answer for the full TTL.
	if key != "" && !resp.Meta.Degraded && resp.Fuzzy == nil {
		o.cache.Set(ctx, key, resp)
	}
	return resp, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, req *models.SearchRequest, weights tuner.Vector, log logger.Logger) (*models.SearchResponse, error) {
	result, err := o.aggregator.Search(ctx, req, weights)
	if err != nil {
		return nil, err
	}
	resp := o.render(req, result)
	if len(resp.Items) > 0 || req.Query == "" {
		if len(resp.Items) == 0 {
			metrics.SearchZeroResults.WithLabelValues(req.Tenant).Inc()
		}
		return resp, nil
	}

	// Stage two: retry with a truncated query prefix
	if prefix, ok := fallbackPrefix(req.Query); ok && o.cfg.PrefixFallback {
		metrics.SearchFallbacks.WithLabelValues("prefix").Inc()
		log.Debug("zero results, retrying with prefix", map[string]interface{}{
			"original": req.Query,
			"prefix":   prefix,
		})
		retry := *req
		retry.Query = prefix
		retried, retryErr := o.aggregator.Search(ctx, &retry, weights)
		if retryErr == nil && len(retried.Items) > 0 {
			fallbackResp := o.render(req, retried)
			fallbackResp.Fallback = &models.FallbackInfo{Original: req.Query, Used: prefix}
			return fallbackResp, nil
		}
	}

	// Stage three: fuzzy matches in a reduced shape
	if o.cfg.FuzzyFallback {
		metrics.SearchFallbacks.WithLabelValues("fuzzy").Inc()
		matches := o.fuzzyIndex.Search(ctx, req.Query, 0)
		if len(matches) > 0 {
			metrics.SearchFuzzySuccess.Inc()
			fuzzyResp := o.render(req, result)
			fuzzyResp.FuzzyItems = make([]models.FuzzyItem, len(matches))
			for i, m := range matches {
				fuzzyResp.FuzzyItems[i] = models.FuzzyItem{SKU: m.SKU, Name: m.Name, Similarity: m.Similarity}
			}
			fuzzyResp.Fuzzy = &models.FuzzyInfo{Original: req.Query, Total: len(matches)}
			return fuzzyResp, nil
		}
	}

	metrics.SearchZeroResults.WithLabelValues(req.Tenant).Inc()
	return resp, nil
}

func (o *Orchestrator) render(req *models.SearchRequest, result *rank.Result) *models.SearchResponse {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit == 0 {
		limit = o.cfg.DefaultLimit
	}
	items := result.Items
	// pagination already copied the slice, so stripping in place is safe
	for i := range items {
		if !req.HasExpand(models.ExpandVendor) {
			items[i].Vendor = ""
		}
		if !req.HasExpand(models.ExpandWarehouse) {
			items[i].Warehouse = ""
		}
		if !req.HasExpand(models.ExpandMedia) && items[i].Media != nil {
			trimmed := *items[i].Media
			trimmed.Items = nil
			items[i].Media = &trimmed
		}
	}
	return &models.SearchResponse{
		Items:  items,
		Total:  result.Total,
		Page:   page,
		Limit:  limit,
		Facets: result.Facets,
		Meta:   models.ResponseMeta{Degraded: result.Degraded},
	}
}

func (o *Orchestrator) validate(req *models.SearchRequest) error {
	if strings.TrimSpace(req.Tenant) == "" {
		return apperrors.NewMissingTenantError()
	}
	if req.Sort != "" && !models.ValidSortMode(req.Sort) {
		return apperrors.NewInvalidSortModeError(string(req.Sort))
	}
	return nil
}

// resolveWeights picks the scoring vector for this request: an inline
// rankWeights override wins, otherwise the tuner's current vector. The
// returned version feeds the cache key.
func (o *Orchestrator) resolveWeights(req *models.SearchRequest) (tuner.Vector, int64, error) {
	if req.RankWeights != "" {
		parsed := tuner.ParseVector(req.RankWeights)
		if parsed == nil {
			return tuner.Vector{}, 0, apperrors.NewInvalidWeightStringError(req.RankWeights)
		}
		normalized := parsed.Normalize()
		if err := normalized.Validate(); err != nil {
			return tuner.Vector{}, 0, err
		}
		return normalized, o.tuner.EffectiveVersion(), nil
	}
	return o.tuner.MaybeUpdate(), o.tuner.EffectiveVersion(), nil
}

// cacheable limits caching to the pages worth the memory: first page,
// no volatile expansions. Deeper pages churn too fast to earn hits.
func (o *Orchestrator) cacheable(req *models.SearchRequest) bool {
	if req.Page > 1 {
		return false
	}
	if req.HasExpand(models.ExpandVariants) {
		return false
	}
	return true
}

// fallbackPrefix truncates the query to roughly its leading 60%, at
// least two characters. Queries under four characters never fall back.
func fallbackPrefix(query string) (string, bool) {
	trimmed := strings.TrimSpace(query)
	runes := utf8.RuneCountInString(trimmed)
	if runes < prefixFallbackMinLen {
		return "", false
	}
	keep := int(float64(runes) * prefixKeepRatio)
	if keep < prefixMinChars {
		keep = prefixMinChars
	}
	return string([]rune(trimmed)[:keep]), true
}

func sortOrDefault(s models.SortMode) models.SortMode {
	if s == "" {
		return models.SortRank
	}
	return s
}

// ==========================
// Interaction feedback
// ==========================

// RecordClick feeds a click event into the signal store.
func (o *Orchestrator) RecordClick(sku string, price float64, hasMedia bool) {
	o.signals.RecordClick(sku, &signals.Meta{Price: price, HasMedia: hasMedia})
}

// RecordView feeds a view with dwell time into the signal store.
func (o *Orchestrator) RecordView(sku string, dwellMs int64, price float64, hasMedia bool) {
	o.signals.RecordView(sku, dwellMs, &signals.Meta{Price: price, HasMedia: hasMedia})
}

// ==========================
// Admin operations
// ==========================

// SetManualWeights pins the scoring vector until cleared.
func (o *Orchestrator) SetManualWeights(raw string) error {
	if err := o.tuner.SetManualWeightsString(raw); err != nil {
		return err
	}
	metrics.TunerUpdates.WithLabelValues("manual").Inc()
	return nil
}

// ClearManualWeights resumes automatic tuning.
func (o *Orchestrator) ClearManualWeights() {
	o.tuner.ClearManualWeights()
}

// EffectiveWeights reports the active vector and its version.
func (o *Orchestrator) EffectiveWeights() (tuner.Vector, int64, bool) {
	return o.tuner.Current(), o.tuner.EffectiveVersion(), o.tuner.ManualActive()
}

// BumpTenantVersion rotates every cache key for a tenant.
func (o *Orchestrator) BumpTenantVersion(ctx context.Context, tenant string) (int64, error) {
	return o.versions.Bump(ctx, tenant)
}

// RebuildFuzzyIndex forces a rebuild outside the staleness schedule.
func (o *Orchestrator) RebuildFuzzyIndex(ctx context.Context) error {
	return o.fuzzyIndex.Rebuild(ctx)
}

// CacheStats exposes the cache tier counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}
