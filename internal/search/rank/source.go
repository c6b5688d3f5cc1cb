// internal/search/rank/source.go
package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"marketplace-search/internal/catalog"
	"marketplace-search/internal/common/database"
	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/models"
	"marketplace-search/internal/search/rank/queries"
)

// Params is the fully resolved candidate fetch: text alternations are
// already synonym-expanded and the pattern is compiled.
type Params struct {
	Terms        []string
	Pattern      *regexp.Regexp
	Category     string
	Material     string
	Thickness    []float64
	ThicknessTol float64
	PriceMin     *float64
	PriceMax     *float64
	RatingMin    *float64
	CandidateCap int
}

// Source fetches the unranked candidate set for a tenant. The returned
// total is the full match count; the slice is capped at CandidateCap.
type Source interface {
	Fetch(ctx context.Context, tenant string, p Params) ([]models.Listing, int64, error)
}

// ==========================
// Elasticsearch source
// ==========================

type ESSource struct {
	client *database.ElasticsearchClient
}

func NewESSource(client *database.ElasticsearchClient) *ESSource {
	return &ESSource{client: client}
}

type esHit struct {
	Source models.Listing `json:"_source"`
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

func (s *ESSource) Fetch(ctx context.Context, tenant string, p Params) ([]models.Listing, int64, error) {
	req, err := queries.BuildSearchRequest(queries.SearchSpec{
		Index:        s.client.Index,
		Tenant:       tenant,
		Terms:        p.Terms,
		Category:     p.Category,
		Material:     p.Material,
		Thickness:    p.Thickness,
		ThicknessTol: p.ThicknessTol,
		PriceMin:     p.PriceMin,
		PriceMax:     p.PriceMax,
		RatingMin:    p.RatingMin,
		From:         0,
		Size:         p.CandidateCap,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build search request: %w", err)
	}

	res, err := req.Do(ctx, s.client.Client)
	if err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, apperrors.NewQueryFailedError(fmt.Errorf("search responded with %s", res.Status()))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	listings := make([]models.Listing, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		listings = append(listings, hit.Source)
	}
	return listings, parsed.Hits.Total.Value, nil
}

// ==========================
// Mirror source
// ==========================

// MirrorSource scans the in-process catalog mirror. It serves as the
// degraded path when the primary datastore is unreachable.
type MirrorSource struct {
	mirror *catalog.Mirror
}

func NewMirrorSource(mirror *catalog.Mirror) *MirrorSource {
	return &MirrorSource{mirror: mirror}
}

func (s *MirrorSource) Fetch(_ context.Context, tenant string, p Params) ([]models.Listing, int64, error) {
	snapshot := s.mirror.All(tenant)
	if len(snapshot) == 0 {
		return nil, 0, apperrors.NewMirrorEmptyError(tenant)
	}

	matched := make([]models.Listing, 0, len(snapshot))
	var total int64
	for _, listing := range snapshot {
		if !matchesFilters(listing, p) {
			continue
		}
		total++
		if len(matched) < p.CandidateCap {
			matched = append(matched, listing)
		}
	}
	return matched, total, nil
}

func matchesFilters(l models.Listing, p Params) bool {
	if !l.Active {
		return false
	}
	if p.Pattern != nil {
		if !p.Pattern.MatchString(l.Name) && !p.Pattern.MatchString(l.Material) {
			return false
		}
	}
	if p.Category != "" && !strings.EqualFold(l.Category, p.Category) {
		return false
	}
	if p.Material != "" && !strings.EqualFold(l.Material, p.Material) {
		return false
	}
	if len(p.Thickness) > 0 && !thicknessMatch(l.Thickness, p.Thickness, p.ThicknessTol) {
		return false
	}
	if p.PriceMin != nil && l.Price < *p.PriceMin {
		return false
	}
	if p.PriceMax != nil && l.Price > *p.PriceMax {
		return false
	}
	if p.RatingMin != nil && l.Credibility < *p.RatingMin {
		return false
	}
	return true
}

func thicknessMatch(value float64, wanted []float64, tol float64) bool {
	for _, w := range wanted {
		if value >= w-tol && value <= w+tol {
			return true
		}
	}
	return false
}
