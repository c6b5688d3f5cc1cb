// cmd/search-service/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketplace-search/internal/catalog"
	"marketplace-search/internal/common/config"
	"marketplace-search/internal/common/database"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/observability"
	"marketplace-search/internal/search/cache"
	"marketplace-search/internal/search/fuzzy"
	"marketplace-search/internal/search/orchestrator"
	"marketplace-search/internal/search/rank"
	"marketplace-search/internal/search/signals"
	"marketplace-search/internal/search/synonyms"
	"marketplace-search/internal/search/tuner"
	"marketplace-search/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting search service...")

	obs := observability.New("search-service")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis when the cache backend needs it ---
	var redisClient *database.RedisClient
	if cfg.Cache.Backend == "redis" {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Catalog mirror warm-up ---
	repo := catalog.NewRepository(pg.DB, log)
	mirror := catalog.NewMirror()
	if err := repo.RefreshMirror(ctx, mirror); err != nil {
		zapLog.Warn("initial mirror refresh failed, degraded fallback unavailable until retry", zap.Error(err))
	}

	refreshInterval := time.Duration(cfg.Search.MirrorRefresh) * time.Second
	stopRefresh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := repo.RefreshMirror(ctx, mirror); err != nil {
					log.Warn("mirror refresh failed", map[string]interface{}{"error": err.Error()})
				}
			case <-stopRefresh:
				return
			}
		}
	}()

	// --- Search components ---
	signalStore := signals.NewStore(cfg.Tuner.SignalMaxCount, log)
	weightTuner := tuner.New(
		cfg.Tuner.Enabled,
		time.Duration(cfg.Tuner.PeriodHours)*time.Hour,
		signalStore,
		log,
	)
	expander := synonyms.NewExpander(nil)

	fuzzyIndex := fuzzy.New(cfg.Fuzzy, func(ctx context.Context) ([]fuzzy.Entry, error) {
		var entries []fuzzy.Entry
		for _, tenant := range mirror.Tenants() {
			for _, listing := range mirror.All(tenant) {
				entries = append(entries, fuzzy.Entry{SKU: listing.SKU, Name: listing.Name})
			}
		}
		return entries, nil
	}, log)

	pageCache := cache.New(cfg.Cache, redisClient, log)
	versions := cache.NewVersions(cfg.Cache.Backend, redisClient, log)

	aggregator := rank.NewAggregator(
		rank.NewESSource(esClient),
		rank.NewMirrorSource(mirror),
		expander,
		cfg.Search,
		log,
	)

	orch := orchestrator.New(aggregator, weightTuner, pageCache, versions, fuzzyIndex, signalStore, cfg.Search, log)

	// --- HTTP server ---
	srv := server.New(cfg.App.HTTPPort, orch, obs, log)
	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	close(stopRefresh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Search service stopped gracefully")
}
