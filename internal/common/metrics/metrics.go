// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by tenant and sort mode",
		},
		[]string{"tenant", "sort"},
	)

	SearchZeroResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_zero_results_total",
			Help: "Total number of searches that produced no results after all stages",
		},
		[]string{"tenant"},
	)

	SearchFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_fallback_total",
			Help: "Total number of relaxation attempts by stage (prefix, fuzzy)",
		},
		[]string{"stage"},
	)

	SearchFuzzySuccess = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_fuzzy_success_total",
			Help: "Total number of fuzzy attempts that produced at least one match",
		},
	)

	SearchCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_events_total",
			Help: "Cache outcomes per request (hit, miss, skip)",
		},
		[]string{"result"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "search_request_duration_seconds",
			Help: "Duration of search stages in seconds",
		},
		[]string{"stage"},
	)

	SearchDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_degraded_total",
			Help: "Total number of searches served from the in-process mirror",
		},
	)

	SignalStoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_store_entries",
			Help: "Number of SKUs currently tracked by the signal store",
		},
	)

	TunerUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weight_tuner_updates_total",
			Help: "Weight vector updates by source (auto, manual)",
		},
		[]string{"source"},
	)

	FuzzyRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fuzzy_index_rebuilds_total",
			Help: "Fuzzy index rebuild attempts by outcome (success, failure)",
		},
		[]string{"outcome"},
	)
)
