// internal/search/rank/aggregator.go
package rank

import (
	"context"
	"strconv"
	"time"

	"marketplace-search/internal/common/config"
	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"
	"marketplace-search/internal/models"
	"marketplace-search/internal/search/synonyms"
	"marketplace-search/internal/search/tuner"
)

// Result is one ranked, paginated page of candidates.
type Result struct {
	Items    []models.Listing
	Total    int64
	Facets   *models.Facets
	Degraded bool
}

// Aggregator fetches candidates, scores them with the active weight
// vector, and assembles the result page. The primary source is the search
// datastore; when it fails the catalog mirror serves a degraded page.
type Aggregator struct {
	primary  Source
	fallback Source
	expander *synonyms.Expander
	cfg      config.SearchConfig
	logger   logger.Logger
}

func NewAggregator(primary, fallback Source, expander *synonyms.Expander, cfg config.SearchConfig, log logger.Logger) *Aggregator {
	return &Aggregator{
		primary:  primary,
		fallback: fallback,
		expander: expander,
		cfg:      cfg,
		logger:   log,
	}
}

// BuildParams resolves a request into a fetch spec: synonym expansion and
// pattern compilation happen here so both sources see the same terms.
func (a *Aggregator) BuildParams(req *models.SearchRequest) Params {
	p := Params{
		Category:     req.Category,
		Material:     req.Material,
		Thickness:    req.Thickness,
		ThicknessTol: a.cfg.ThicknessTolerance,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		RatingMin:    req.RatingMin,
		CandidateCap: a.cfg.CandidateCap,
	}
	if req.Query != "" {
		p.Terms = a.expander.Alternations(req.Query)
		p.Pattern = a.expander.Pattern(req.Query)
	}
	return p
}

// Search runs one ranked query end to end. The limit is rejected above
// the configured maximum rather than silently clamped.
func (a *Aggregator) Search(ctx context.Context, req *models.SearchRequest, weights tuner.Vector) (*Result, error) {
	page, limit, err := a.resolvePaging(req)
	if err != nil {
		return nil, err
	}

	params := a.BuildParams(req)

	candidates, total, degraded, err := a.fetch(ctx, req.Tenant, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	scoreAndSort(candidates, req.Sort, weights, time.Now())
	metrics.SearchDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())

	result := &Result{
		Total:    total,
		Degraded: degraded,
	}

	// Facets are sampled from the ranked head and only computed on the
	// first page; deeper pages reuse the page-1 summary from cache.
	if req.Mode == models.ModeFacets && page == 1 {
		result.Facets = buildFacets(candidates, a.cfg.FacetSampleCap)
	}

	result.Items = paginate(candidates, page, limit)
	return result, nil
}

func (a *Aggregator) resolvePaging(req *models.SearchRequest) (int, int, error) {
	limit := req.Limit
	if limit == 0 {
		limit = a.cfg.DefaultLimit
	}
	if limit < 1 || limit > a.cfg.MaxLimit {
		return 0, 0, apperrors.NewInvalidLimitError(limit, a.cfg.MaxLimit)
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, apperrors.NewInvalidPageError(page)
	}
	return page, limit, nil
}

func (a *Aggregator) fetch(ctx context.Context, tenant string, p Params) ([]models.Listing, int64, bool, error) {
	start := time.Now()
	candidates, total, err := a.primary.Fetch(ctx, tenant, p)
	metrics.SearchDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err == nil {
		return candidates, total, false, nil
	}

	a.logger.Warn("primary datastore failed, serving from mirror", map[string]interface{}{
		"tenant": tenant,
		"error":  err.Error(),
	})
	metrics.SearchDegraded.Inc()

	candidates, total, ferr := a.fallback.Fetch(ctx, tenant, p)
	if ferr != nil {
		a.logger.Error("mirror fallback failed", map[string]interface{}{
			"tenant": tenant,
			"error":  ferr.Error(),
		})
		return nil, 0, false, err
	}
	return candidates, total, true, nil
}

// buildFacets counts materials and thickness values over at most cap
// candidates. Counts are best-effort by contract, not exact totals.
func buildFacets(candidates []models.Listing, sampleCap int) *models.Facets {
	sample := candidates
	if sampleCap > 0 && len(sample) > sampleCap {
		sample = sample[:sampleCap]
	}
	facets := &models.Facets{
		Materials: make(map[string]int64),
		Thickness: make(map[string]int64),
	}
	for _, l := range sample {
		if l.Material != "" {
			facets.Materials[l.Material]++
		}
		if l.Thickness > 0 {
			key := strconv.FormatFloat(l.Thickness, 'f', -1, 64)
			facets.Thickness[key]++
		}
	}
	return facets
}

func paginate(items []models.Listing, page, limit int) []models.Listing {
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []models.Listing{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]models.Listing, end-offset)
	copy(out, items[offset:end])
	return out
}
