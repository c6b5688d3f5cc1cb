// internal/search/tuner/tuner.go
package tuner

import (
	"sync"
	"time"

	apperrors "marketplace-search/internal/common/errors"
	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"
	"marketplace-search/internal/search/signals"
)

// Tuner maintains the effective scoring weight vector. An auto-tuned vector
// is recomputed lazily from the signal store at most once per tuning period;
// a manual override always wins while present.
type Tuner struct {
	mu      sync.Mutex
	enabled bool
	period  time.Duration
	store   *signals.Store
	logger  logger.Logger

	current     Vector
	autoVersion int64
	lastUpdate  time.Time
	lastDiag    signals.Diagnostics

	manual        *Vector
	manualVersion int64
	manualSetAt   time.Time
}

// New creates a tuner over the given signal store.
func New(enabled bool, period time.Duration, store *signals.Store, log logger.Logger) *Tuner {
	return &Tuner{
		enabled: enabled,
		period:  period,
		store:   store,
		logger:  log.WithFields(map[string]interface{}{"component": "weight-tuner"}),
		current: DefaultVector(),
	}
}

// Enabled reports whether adaptive tuning is active.
func (t *Tuner) Enabled() bool {
	return t.enabled
}

// MaybeUpdate returns the effective weight vector, recomputing the auto-tuned
// vector when the tuning period has elapsed. A concurrent caller arriving
// during a recompute may redundantly recompute from the same inputs; both
// converge to the same vector, so no long-held lock is taken around the work.
func (t *Tuner) MaybeUpdate() Vector {
	if !t.enabled {
		return DefaultVector()
	}

	t.mu.Lock()
	if t.manual != nil {
		v := *t.manual
		t.mu.Unlock()
		return v
	}
	if !t.lastUpdate.IsZero() && time.Since(t.lastUpdate) < t.period {
		v := t.current
		t.mu.Unlock()
		return v
	}
	t.mu.Unlock()

	// Recompute outside the lock; prune first so retired signals don't vote.
	t.store.Prune()
	est, diag := t.store.ComputeWeeklyWeights()
	next := Vector{
		Credibility: est.Credibility,
		Price:       est.Price,
		Freshness:   est.Freshness,
		Media:       est.Media,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastUpdate = time.Now().UTC()
	t.lastDiag = diag
	if !next.Equal(t.current) {
		t.current = next
		t.autoVersion++
		metrics.TunerUpdates.WithLabelValues("auto").Inc()
		t.logger.Info("auto-tuned weight vector updated", map[string]interface{}{
			"version":     t.autoVersion,
			"credibility": next.Credibility,
			"price":       next.Price,
			"freshness":   next.Freshness,
			"media":       next.Media,
			"clicks":      diag.TotalClicks,
			"views":       diag.TotalViews,
		})
	}
	if t.manual != nil {
		// A manual override may have been set while we recomputed; it wins.
		return *t.manual
	}
	return t.current
}

// SetManualWeights installs an operator-supplied override. The vector is
// validated and normalized; the manual version counter is bumped.
func (t *Tuner) SetManualWeights(v Vector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	normalized := v.Normalize()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.manual = &normalized
	t.manualVersion++
	t.manualSetAt = time.Now().UTC()
	metrics.TunerUpdates.WithLabelValues("manual").Inc()
	t.logger.Info("manual weight override set", map[string]interface{}{
		"version":     t.manualVersion,
		"credibility": normalized.Credibility,
		"price":       normalized.Price,
		"freshness":   normalized.Freshness,
		"media":       normalized.Media,
	})
	return nil
}

// SetManualWeightsString installs an override from the compact string
// encoding used by the administrative surface.
func (t *Tuner) SetManualWeightsString(s string) error {
	v := ParseVector(s)
	if v == nil {
		return apperrors.NewInvalidWeightStringError(s)
	}
	return t.SetManualWeights(*v)
}

// ClearManualWeights removes the override; auto-tuning resumes on the next
// query. Clearing bumps the manual counter so cached pages keyed on the
// override are invalidated.
func (t *Tuner) ClearManualWeights() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.manual == nil {
		return
	}
	t.manual = nil
	t.manualVersion++
	t.logger.Info("manual weight override cleared", map[string]interface{}{
		"version": t.manualVersion,
	})
}

// Current returns the effective vector without triggering a recompute.
func (t *Tuner) Current() Vector {
	if !t.enabled {
		return DefaultVector()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manual != nil {
		return *t.manual
	}
	return t.current
}

// ManualActive reports whether an operator override is in effect.
func (t *Tuner) ManualActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manual != nil
}

// EffectiveVersion returns a counter that advances whenever the effective
// vector can have changed: auto retunes, manual sets, and manual clears all
// bump it. Cache keys embed this value.
func (t *Tuner) EffectiveVersion() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.autoVersion + t.manualVersion
}

// NextAutoTuneETA returns when the next automatic recompute becomes eligible.
func (t *Tuner) NextAutoTuneETA() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastUpdate.IsZero() {
		return time.Now().UTC()
	}
	return t.lastUpdate.Add(t.period)
}

// Diagnostics returns the signal sample behind the last auto recompute.
func (t *Tuner) Diagnostics() signals.Diagnostics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastDiag
}
