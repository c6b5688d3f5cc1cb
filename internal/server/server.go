// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/observability"
	"marketplace-search/internal/search/orchestrator"
)

// Server exposes the query pipeline over HTTP: the public search and
// event endpoints plus a small admin surface.
type Server struct {
	orch   *orchestrator.Orchestrator
	obs    *observability.Observability
	logger logger.Logger
	http   *http.Server
}

func New(port int, orch *orchestrator.Orchestrator, obs *observability.Observability, log logger.Logger) *Server {
	s := &Server{
		orch:   orch,
		obs:    obs,
		logger: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /search", s.handleSearchGet)
	mux.HandleFunc("POST /search", s.handleSearchPost)
	mux.HandleFunc("POST /events/click", s.handleClick)
	mux.HandleFunc("POST /events/view", s.handleView)

	mux.HandleFunc("GET /admin/weights", s.handleWeightsGet)
	mux.HandleFunc("PUT /admin/weights", s.handleWeightsSet)
	mux.HandleFunc("DELETE /admin/weights", s.handleWeightsClear)
	mux.HandleFunc("POST /admin/cache/bump", s.handleCacheBump)
	mux.HandleFunc("GET /admin/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /admin/fuzzy/rebuild", s.handleFuzzyRebuild)

	s.http = &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
