// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-search/internal/common/config"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/observability"
	"marketplace-search/internal/models"
	"marketplace-search/internal/search/cache"
	"marketplace-search/internal/search/fuzzy"
	"marketplace-search/internal/search/orchestrator"
	"marketplace-search/internal/search/rank"
	"marketplace-search/internal/search/signals"
	"marketplace-search/internal/search/synonyms"
	"marketplace-search/internal/search/tuner"
)

// ==========================
// Test Helpers
// ==========================

type staticSource struct {
	listings []models.Listing
}

func (s *staticSource) Fetch(_ context.Context, _ string, _ rank.Params) ([]models.Listing, int64, error) {
	return s.listings, int64(len(s.listings)), nil
}

func newTestServer(t *testing.T, listings []models.Listing) *Server {
	t.Helper()
	log := logger.NewNoOpLogger()
	cfg := config.SearchConfig{
		MaxLimit:       100,
		DefaultLimit:   20,
		CandidateCap:   1000,
		FacetSampleCap: 300,
		QueryTimeout:   2000,
	}
	store := signals.NewStore(100, log)
	tn := tuner.New(false, time.Hour, store, log)
	source := &staticSource{listings: listings}
	agg := rank.NewAggregator(source, source, synonyms.NewExpander(nil), cfg, log)
	index := fuzzy.New(config.FuzzyConfig{MinQueryLength: 3, MinSimilarity: 0.4, MaxResults: 10, RebuildInterval: 3600},
		func(context.Context) ([]fuzzy.Entry, error) { return nil, nil }, log)
	orch := orchestrator.New(agg, tn, cache.NewMemoryCache(16, time.Minute), cache.NewMemoryVersions(), index, store, cfg, log)
	return New(0, orch, observability.New("search-service-test"), log)
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

// ==========================
// Search Endpoint Tests
// ==========================

func TestSearchGet_ReturnsRankedPage(t *testing.T) {
	s := newTestServer(t, []models.Listing{
		{Tenant: "tenant-sa", SKU: "SKU-1", Name: "Carrara Slab", Price: 100, CreatedAt: time.Now(), Active: true},
	})

	rec := doRequest(s, http.MethodGet, "/search?tenant=tenant-sa&q=carrara", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "SKU-1", resp.Items[0].SKU)
	assert.Equal(t, int64(1), resp.Total)
}

func TestSearchGet_MissingTenantRejected(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/search?q=marble", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_TENANT", body.Code)
}

func TestSearchGet_RejectsNonNumericParams(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"bad limit", "/search?tenant=t&limit=abc"},
		{"bad price bound", "/search?tenant=t&priceMin=cheap"},
		{"bad thickness", "/search?tenant=t&thickness=2.0,thin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchGet_LimitAboveMaxRejected(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/search?tenant=tenant-sa&limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_LIMIT", body.Code)
}

func TestSearchPost_SchemaValidation(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("unknown field rejected", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/search", `{"tenant":"tenant-sa","unknown":true}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid body accepted", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/search", `{"tenant":"tenant-sa","q":"marble","limit":10}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-object body rejected", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/search", `"just a string"`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// ==========================
// Event Endpoint Tests
// ==========================

func TestEvents_Accepted(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(s, http.MethodPost, "/events/click", `{"sku":"SKU-1","price":100,"hasMedia":true}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(s, http.MethodPost, "/events/view", `{"sku":"SKU-1","price":100,"dwellMs":4000}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// ==========================
// Admin Endpoint Tests
// ==========================

func TestAdminWeights_Lifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(s, http.MethodPut, "/admin/weights", `{"weights":"credibility:0.4,price:0.3,freshness:0.2,media:0.1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Manual  bool  `json:"manual"`
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Manual)

	rec = doRequest(s, http.MethodDelete, "/admin/weights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Manual)
}

func TestAdminWeights_MalformedStringRejected(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodPut, "/admin/weights", `{"weights":"price:only"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCacheBump(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doRequest(s, http.MethodPost, "/admin/cache/bump", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/admin/cache/bump?tenant=tenant-sa", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Version)
}

func TestAdminCacheStats(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doRequest(s, http.MethodGet, "/admin/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.Backend)
}
