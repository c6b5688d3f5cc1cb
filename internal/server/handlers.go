// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/common/validation"
	"marketplace-search/internal/models"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case code == apperrors.ErrCodeSearchTimeout:
		status = http.StatusGatewayTimeout
	case code == apperrors.ErrCodeStoreUnavailable || code == apperrors.ErrCodeMirrorEmpty:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: err.Error()})
}

// ==========================
// Search
// ==========================

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.runSearch(w, r, req)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, apperrors.NewRequestInvalidError("body must be a JSON object"))
		return
	}

	result, err := validation.ValidateSearchRequest(payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !result.Valid {
		s.writeError(w, apperrors.NewRequestInvalidError(result.ErrorSummary()))
		return
	}

	raw, _ := json.Marshal(payload)
	var req models.SearchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(w, apperrors.NewRequestInvalidError(err.Error()))
		return
	}
	s.runSearch(w, r, &req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req *models.SearchRequest) {
	start := time.Now()
	resp, err := s.orch.Search(r.Context(), req)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.obs.RecordRequest(r.Context(), outcome)
	s.obs.RecordDuration(r.Context(), time.Since(start), outcome)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestFromQuery(r *http.Request) (*models.SearchRequest, error) {
	q := r.URL.Query()
	req := &models.SearchRequest{
		Tenant:      q.Get("tenant"),
		Query:       q.Get("q"),
		Category:    q.Get("category"),
		Material:    q.Get("material"),
		Sort:        models.SortMode(q.Get("sort")),
		Mode:        q.Get("mode"),
		RankWeights: q.Get("rankWeights"),
	}

	if raw := q.Get("thickness"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, apperrors.NewRequestInvalidError("thickness values must be numeric")
			}
			req.Thickness = append(req.Thickness, v)
		}
	}

	for name, dst := range map[string]**float64{
		"priceMin":  &req.PriceMin,
		"priceMax":  &req.PriceMax,
		"ratingMin": &req.RatingMin,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, apperrors.NewRequestInvalidError(name + " must be numeric")
			}
			*dst = &v
		}
	}

	var err error
	if req.Page, err = intParam(q.Get("page")); err != nil {
		return nil, apperrors.NewRequestInvalidError("page must be an integer")
	}
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		return nil, apperrors.NewRequestInvalidError("limit must be an integer")
	}

	if raw := q.Get("expand"); raw != "" {
		req.Expand = strings.Split(raw, ",")
	}
	return req, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// ==========================
// Interaction events
// ==========================

type clickEvent struct {
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	HasMedia bool    `json:"hasMedia"`
}

type viewEvent struct {
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	HasMedia bool    `json:"hasMedia"`
	DwellMs  int64   `json:"dwellMs"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var ev clickEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, apperrors.NewRequestInvalidError("invalid click event"))
		return
	}
	s.orch.RecordClick(ev.SKU, ev.Price, ev.HasMedia)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var ev viewEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, apperrors.NewRequestInvalidError("invalid view event"))
		return
	}
	s.orch.RecordView(ev.SKU, ev.DwellMs, ev.Price, ev.HasMedia)
	w.WriteHeader(http.StatusAccepted)
}

// ==========================
// Admin
// ==========================

func (s *Server) handleWeightsGet(w http.ResponseWriter, _ *http.Request) {
	vector, version, manual := s.orch.EffectiveWeights()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weights": vector,
		"version": version,
		"manual":  manual,
	})
}

func (s *Server) handleWeightsSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Weights string `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, apperrors.NewRequestInvalidError("body must carry a weights string"))
		return
	}
	if err := s.orch.SetManualWeights(body.Weights); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleWeightsGet(w, r)
}

func (s *Server) handleWeightsClear(w http.ResponseWriter, r *http.Request) {
	s.orch.ClearManualWeights()
	s.handleWeightsGet(w, r)
}

func (s *Server) handleCacheBump(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		s.writeError(w, apperrors.NewMissingTenantError())
		return
	}
	version, err := s.orch.BumpTenantVersion(r.Context(), tenant)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant":  tenant,
		"version": version,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.CacheStats())
}

func (s *Server) handleFuzzyRebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.RebuildFuzzyIndex(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
