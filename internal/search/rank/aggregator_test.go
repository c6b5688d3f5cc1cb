// internal/search/rank/aggregator_test.go
package rank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-search/internal/common/config"
	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/models"
	"marketplace-search/internal/search/synonyms"
	"marketplace-search/internal/search/tuner"
)

// ==========================
// Test Helpers
// ==========================

type stubSource struct {
	listings []models.Listing
	total    int64
	err      error
	calls    int
}

func (s *stubSource) Fetch(_ context.Context, _ string, _ Params) ([]models.Listing, int64, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.listings, s.total, nil
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxLimit:           100,
		DefaultLimit:       20,
		CandidateCap:       1000,
		FacetSampleCap:     300,
		ThicknessTolerance: 0.05,
	}
}

func newTestAggregator(primary, fallback Source) *Aggregator {
	return NewAggregator(primary, fallback, synonyms.NewExpander(nil), testSearchConfig(), logger.NewNoOpLogger())
}

func createTestListing(sku string, price float64, cred float64, created time.Time) models.Listing {
	return models.Listing{
		Tenant:      "tenant-sa",
		SKU:         sku,
		Name:        "Listing " + sku,
		Category:    "slabs",
		Material:    "marble",
		Thickness:   2.0,
		Price:       price,
		Currency:    "SAR",
		Credibility: cred,
		CreatedAt:   created,
		Active:      true,
	}
}

// ==========================
// Normalization Tests
// ==========================

func TestPriceNorm_DegenerateBoundsAreNeutral(t *testing.T) {
	b := bounds{priceMin: 250, priceMax: 250}
	assert.Equal(t, 0.5, priceNorm(250, b))
}

func TestPriceNorm_CheaperScoresHigher(t *testing.T) {
	b := bounds{priceMin: 100, priceMax: 300}
	assert.Equal(t, 1.0, priceNorm(100, b))
	assert.Equal(t, 0.0, priceNorm(300, b))
	assert.Equal(t, 0.5, priceNorm(200, b))
}

func TestCredibilityNorm_ScaleDetection(t *testing.T) {
	tests := []struct {
		name     string
		cred     float64
		expected float64
	}{
		{"five point scale", 4.0, 0.8},
		{"five point max", 5.0, 1.0},
		{"hundred point scale", 80.0, 0.8},
		{"above hundred clamps", 150.0, 1.0},
		{"negative clamps to zero", -3.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, credibilityNorm(tt.cred), 1e-9)
		})
	}
}

func TestMediaRawScore(t *testing.T) {
	t.Run("no media scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, mediaRawScore(nil))
		assert.Equal(t, 0.0, mediaRawScore(&models.MediaSummary{Count: 0}))
	})

	t.Run("video listing outranks single image", func(t *testing.T) {
		image := &models.MediaSummary{
			Count: 1,
			Items: []models.MediaItem{{Type: models.MediaImage, Quality: 0.8, Position: 0}},
		}
		video := &models.MediaSummary{
			Count:    1,
			HasVideo: true,
			Items:    []models.MediaItem{{Type: models.MediaVideo, Quality: 0.8, Position: 0}},
		}
		assert.Greater(t, mediaRawScore(video), mediaRawScore(image))
	})

	t.Run("count without items uses fallback quality", func(t *testing.T) {
		summary := &models.MediaSummary{Count: 3}
		assert.Greater(t, mediaRawScore(summary), 0.0)
	})

	t.Run("variety adds a bounded bonus", func(t *testing.T) {
		mono := &models.MediaSummary{
			Count: 2,
			Items: []models.MediaItem{
				{Type: models.MediaImage, Quality: 0.5, Position: 0},
				{Type: models.MediaImage, Quality: 0.5, Position: 1},
			},
		}
		mixed := &models.MediaSummary{
			Count: 2,
			Items: []models.MediaItem{
				{Type: models.MediaImage, Quality: 0.5, Position: 0},
				{Type: models.Media360, Quality: 0.5, Position: 1},
			},
		}
		// strip the flat 360 bonus to isolate variety
		diff := mediaRawScore(mixed) - mediaRawScore(mono)
		assert.Greater(t, diff, 0.0)
	})
}

// ==========================
// Composite Ranking Tests
// ==========================

func TestScoreAndSort_CompositeOrdering(t *testing.T) {
	now := time.Now()
	listingA := createTestListing("SKU-A", 100, 4.0, now.Add(-10*24*time.Hour))
	listingB := createTestListing("SKU-B", 300, 5.0, now)
	listingC := createTestListing("SKU-C", 200, 2.0, now.Add(-5*24*time.Hour))

	items := []models.Listing{listingC, listingA, listingB}
	scoreAndSort(items, models.SortRank, tuner.DefaultVector(), now)

	// A: 0.5*0.8 + 0.3*1.0 + 0.2*0.0 = 0.70
	// B: 0.5*1.0 + 0.3*0.0 + 0.2*1.0 = 0.70
	// C: 0.5*0.4 + 0.3*0.5 + 0.2*0.5 = 0.45
	assert.Equal(t, "SKU-C", items[2].SKU, "C must rank below A and B")
	assert.ElementsMatch(t, []string{"SKU-A", "SKU-B"}, []string{items[0].SKU, items[1].SKU})
	// equal composites break on SKU ascending
	assert.Equal(t, "SKU-A", items[0].SKU)
}

func TestScoreAndSort_AttributeModes(t *testing.T) {
	now := time.Now()
	items := []models.Listing{
		createTestListing("SKU-1", 300, 3, now.Add(-48*time.Hour)),
		createTestListing("SKU-2", 100, 4, now),
		createTestListing("SKU-3", 200, 5, now.Add(-24*time.Hour)),
	}

	tests := []struct {
		name     string
		mode     models.SortMode
		expected []string
	}{
		{"price ascending", models.SortPriceAsc, []string{"SKU-2", "SKU-3", "SKU-1"}},
		{"price descending", models.SortPriceDesc, []string{"SKU-1", "SKU-3", "SKU-2"}},
		{"newest first", models.SortNewest, []string{"SKU-2", "SKU-3", "SKU-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := make([]models.Listing, len(items))
			copy(batch, items)
			scoreAndSort(batch, tt.mode, tuner.DefaultVector(), now)
			got := make([]string, len(batch))
			for i, l := range batch {
				got[i] = l.SKU
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestScoreAndSort_PriceTieBreaksOnSKU(t *testing.T) {
	now := time.Now()
	items := []models.Listing{
		createTestListing("SKU-B", 100, 3, now),
		createTestListing("SKU-A", 100, 3, now),
	}
	scoreAndSort(items, models.SortPriceAsc, tuner.DefaultVector(), now)
	assert.Equal(t, "SKU-A", items[0].SKU)
}

func TestPopularScore_FavorsRecentWithMedia(t *testing.T) {
	now := time.Now()
	fresh := createTestListing("SKU-F", 150, 3, now)
	fresh.Media = &models.MediaSummary{Count: 2, Items: []models.MediaItem{
		{Type: models.MediaImage, Quality: 0.9},
	}}
	stale := createTestListing("SKU-S", 150, 3, now.Add(-300*24*time.Hour))

	assert.Greater(t, popularScore(fresh, now), popularScore(stale, now))
}

// ==========================
// Aggregator Search Tests
// ==========================

func TestAggregator_RejectsLimitAboveMax(t *testing.T) {
	agg := newTestAggregator(&stubSource{}, &stubSource{})

	_, err := agg.Search(context.Background(), &models.SearchRequest{
		Tenant: "tenant-sa",
		Limit:  101,
	}, tuner.DefaultVector())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidLimit, apperrors.GetErrorCode(err))
}

func TestAggregator_RejectsNegativePage(t *testing.T) {
	agg := newTestAggregator(&stubSource{}, &stubSource{})

	_, err := agg.Search(context.Background(), &models.SearchRequest{
		Tenant: "tenant-sa",
		Page:   -1,
	}, tuner.DefaultVector())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidPage, apperrors.GetErrorCode(err))
}

func TestAggregator_PaginatesRankedResults(t *testing.T) {
	now := time.Now()
	primary := &stubSource{
		listings: []models.Listing{
			createTestListing("SKU-1", 100, 4, now),
			createTestListing("SKU-2", 200, 4, now),
			createTestListing("SKU-3", 300, 4, now),
		},
		total: 3,
	}
	agg := newTestAggregator(primary, &stubSource{})

	result, err := agg.Search(context.Background(), &models.SearchRequest{
		Tenant: "tenant-sa",
		Sort:   models.SortPriceAsc,
		Page:   2,
		Limit:  2,
	}, tuner.DefaultVector())

	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "SKU-3", result.Items[0].SKU)
	assert.False(t, result.Degraded)
}

func TestAggregator_FacetsOnFirstPageOnly(t *testing.T) {
	now := time.Now()
	listings := []models.Listing{
		createTestListing("SKU-1", 100, 4, now),
		createTestListing("SKU-2", 200, 4, now),
		createTestListing("SKU-3", 300, 4, now),
	}
	listings[2].Material = "granite"

	t.Run("first page gets facets", func(t *testing.T) {
		agg := newTestAggregator(&stubSource{listings: listings, total: 3}, &stubSource{})
		result, err := agg.Search(context.Background(), &models.SearchRequest{
			Tenant: "tenant-sa",
			Mode:   models.ModeFacets,
			Page:   1,
		}, tuner.DefaultVector())

		require.NoError(t, err)
		require.NotNil(t, result.Facets)
		assert.Equal(t, int64(2), result.Facets.Materials["marble"])
		assert.Equal(t, int64(1), result.Facets.Materials["granite"])
		assert.Equal(t, int64(3), result.Facets.Thickness["2"])
	})

	t.Run("deeper pages skip facet computation", func(t *testing.T) {
		agg := newTestAggregator(&stubSource{listings: listings, total: 3}, &stubSource{})
		result, err := agg.Search(context.Background(), &models.SearchRequest{
			Tenant: "tenant-sa",
			Mode:   models.ModeFacets,
			Page:   2,
			Limit:  2,
		}, tuner.DefaultVector())

		require.NoError(t, err)
		assert.Nil(t, result.Facets)
	})
}

func TestAggregator_FallsBackToMirrorWhenPrimaryFails(t *testing.T) {
	now := time.Now()
	primary := &stubSource{err: errors.New("connection refused")}
	fallback := &stubSource{
		listings: []models.Listing{createTestListing("SKU-M", 100, 4, now)},
		total:    1,
	}
	agg := newTestAggregator(primary, fallback)

	result, err := agg.Search(context.Background(), &models.SearchRequest{
		Tenant: "tenant-sa",
	}, tuner.DefaultVector())

	require.NoError(t, err)
	assert.True(t, result.Degraded)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "SKU-M", result.Items[0].SKU)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestAggregator_PropagatesPrimaryErrorWhenMirrorEmpty(t *testing.T) {
	primary := &stubSource{err: apperrors.NewStoreUnavailableError(errors.New("down"))}
	fallback := &stubSource{err: apperrors.NewMirrorEmptyError("tenant-sa")}
	agg := newTestAggregator(primary, fallback)

	_, err := agg.Search(context.Background(), &models.SearchRequest{Tenant: "tenant-sa"}, tuner.DefaultVector())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStoreUnavailable, apperrors.GetErrorCode(err))
}

// ==========================
// Filter Matching Tests
// ==========================

func TestMatchesFilters(t *testing.T) {
	now := time.Now()
	listing := createTestListing("SKU-1", 250, 4, now)
	expander := synonyms.NewExpander(nil)
	priceMin := 100.0
	priceMax := 200.0
	ratingMin := 4.5

	tests := []struct {
		name     string
		params   Params
		listing  models.Listing
		expected bool
	}{
		{"no filters match everything", Params{}, listing, true},
		{"category mismatch", Params{Category: "tiles"}, listing, false},
		{"category case insensitive", Params{Category: "Slabs"}, listing, true},
		{"material match", Params{Material: "MARBLE"}, listing, true},
		{"thickness within tolerance", Params{Thickness: []float64{2.03}, ThicknessTol: 0.05}, listing, true},
		{"thickness outside tolerance", Params{Thickness: []float64{3.0}, ThicknessTol: 0.05}, listing, false},
		{"price below minimum", Params{PriceMin: &priceMin, PriceMax: &priceMax}, listing, false},
		{"rating below minimum", Params{RatingMin: &ratingMin}, listing, false},
		{"pattern matches name", Params{Pattern: expander.Pattern("listing")}, listing, true},
		{"pattern misses", Params{Pattern: expander.Pattern("ceramic")}, listing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchesFilters(tt.listing, tt.params))
		})
	}
}

func TestMatchesFilters_InactiveAlwaysExcluded(t *testing.T) {
	listing := createTestListing("SKU-1", 100, 4, time.Now())
	listing.Active = false
	assert.False(t, matchesFilters(listing, Params{}))
}
