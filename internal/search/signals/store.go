// internal/search/signals/store.go
package signals

import (
	"sort"
	"sync"
	"time"

	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/common/metrics"
)

// Meta is a small snapshot of listing state captured at time of interaction.
type Meta struct {
	Price    float64 `json:"price"`
	HasMedia bool    `json:"hasMedia"`
}

// Record is a per-listing accumulator of interaction signals.
type Record struct {
	Clicks       int64     `json:"clicks"`
	Views        int64     `json:"views"`
	DwellTotalMs int64     `json:"dwellTotalMs"`
	Meta         Meta      `json:"meta"`
	LastEvent    time.Time `json:"lastEvent"`
}

// Diagnostics describes the signal sample a weight estimate was derived from.
type Diagnostics struct {
	TotalClicks        int64   `json:"totalClicks"`
	TotalViews         int64   `json:"totalViews"`
	MedianClickedPrice float64 `json:"medianClickedPrice"`
	LowPriceClickShare float64 `json:"lowPriceClickShare"`
	AvgDwellWithMedia  float64 `json:"avgDwellWithMediaMs"`
	AvgDwellNoMedia    float64 `json:"avgDwellNoMediaMs"`
}

// Estimate is a candidate weight vector computed from interaction records.
// Components are non-negative and sum to 1.
type Estimate struct {
	Credibility float64 `json:"credibility"`
	Price       float64 `json:"price"`
	Freshness   float64 `json:"freshness"`
	Media       float64 `json:"media"`
}

const (
	priceWeightMin   = 0.10
	priceWeightMax   = 0.40
	priceWeightMid   = 0.25
	mediaWeightMax   = 0.25
	mediaDwellFloor  = 5000.0  // ms; dwell-with-media must exceed this
	mediaDwellCap    = 25000.0 // ms of excess mapped onto the full media weight
	freshnessDefault = 0.20
	credibilityFloor = 0.10
)

// Store accumulates per-listing interaction counters in process. It holds no
// persistence; retention is bounded by Prune.
type Store struct {
	mu         sync.Mutex
	records    map[string]*Record
	maxEntries int
	logger     logger.Logger
}

// NewStore creates a signal store retaining at most maxEntries records.
func NewStore(maxEntries int, log logger.Logger) *Store {
	return &Store{
		records:    make(map[string]*Record),
		maxEntries: maxEntries,
		logger:     log.WithFields(map[string]interface{}{"component": "signal-store"}),
	}
}

// RecordClick adds a click for a SKU. An empty SKU is a silent no-op:
// telemetry must never break the request path.
func (s *Store) RecordClick(sku string, meta *Meta) {
	if sku == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(sku)
	rec.Clicks++
	rec.LastEvent = time.Now().UTC()
	if meta != nil {
		rec.Meta = *meta
	}
	metrics.SignalStoreEntries.Set(float64(len(s.records)))
}

// RecordView adds a view with dwell time for a SKU. An empty SKU is a
// silent no-op. Negative dwell is recorded as zero.
func (s *Store) RecordView(sku string, dwellMs int64, meta *Meta) {
	if sku == "" {
		return
	}
	if dwellMs < 0 {
		dwellMs = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(sku)
	rec.Views++
	rec.DwellTotalMs += dwellMs
	rec.LastEvent = time.Now().UTC()
	if meta != nil {
		rec.Meta = *meta
	}
	metrics.SignalStoreEntries.Set(float64(len(s.records)))
}

// record returns the accumulator for sku, creating it lazily. Callers hold mu.
func (s *Store) record(sku string) *Record {
	rec, ok := s.records[sku]
	if !ok {
		rec = &Record{}
		s.records[sku] = rec
	}
	return rec
}

// Len returns the number of tracked SKUs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Prune ranks tracked SKUs by clicks+views descending, keeps the top
// maxEntries and drops the rest. Unpopular signals are sacrificed to bound
// memory; this loss is deliberate and best-effort.
func (s *Store) Prune() (pruned, kept int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) <= s.maxEntries {
		return 0, len(s.records)
	}

	type entry struct {
		sku    string
		weight int64
	}
	entries := make([]entry, 0, len(s.records))
	for sku, rec := range s.records {
		entries = append(entries, entry{sku: sku, weight: rec.Clicks + rec.Views})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].sku < entries[j].sku
	})

	for _, e := range entries[s.maxEntries:] {
		delete(s.records, e.sku)
		pruned++
	}
	kept = len(s.records)
	metrics.SignalStoreEntries.Set(float64(kept))

	s.logger.Info("signal store pruned", map[string]interface{}{
		"pruned": pruned,
		"kept":   kept,
	})
	return pruned, kept
}

// Snapshot returns a copy of the current records for read-only consumers.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record, len(s.records))
	for sku, rec := range s.records {
		out[sku] = *rec
	}
	return out
}

// ComputeWeeklyWeights derives a candidate weight vector from the current
// records without mutating them. The four components always sum to 1.
func (s *Store) ComputeWeeklyWeights() (Estimate, Diagnostics) {
	snapshot := s.Snapshot()
	return computeWeights(snapshot)
}

func computeWeights(records map[string]Record) (Estimate, Diagnostics) {
	var diag Diagnostics

	for _, rec := range records {
		diag.TotalClicks += rec.Clicks
		diag.TotalViews += rec.Views
	}

	priceW := priceWeightMid
	if diag.TotalClicks > 0 {
		median, lowShare := clickPriceProfile(records)
		diag.MedianClickedPrice = median
		diag.LowPriceClickShare = lowShare
		// lowShare 0.5 is neutral; cheap-item clickers push price weight up
		priceW = priceWeightMid + (lowShare-0.5)*(priceWeightMax-priceWeightMin)
		if priceW < priceWeightMin {
			priceW = priceWeightMin
		}
		if priceW > priceWeightMax {
			priceW = priceWeightMax
		}
	}

	diag.AvgDwellWithMedia, diag.AvgDwellNoMedia = dwellProfile(records)
	mediaW := 0.0
	if diag.AvgDwellWithMedia > mediaDwellFloor && diag.AvgDwellWithMedia >= diag.AvgDwellNoMedia {
		excess := diag.AvgDwellWithMedia - mediaDwellFloor
		if excess > mediaDwellCap {
			excess = mediaDwellCap
		}
		mediaW = mediaWeightMax * excess / mediaDwellCap
	}

	freshW := freshnessDefault

	credW := 1.0 - priceW - mediaW - freshW
	if credW < credibilityFloor {
		credW = credibilityFloor
	}

	sum := credW + priceW + freshW + mediaW
	return Estimate{
		Credibility: credW / sum,
		Price:       priceW / sum,
		Freshness:   freshW / sum,
		Media:       mediaW / sum,
	}, diag
}

// clickPriceProfile computes the click-weighted median price and the share of
// clicks landing on listings at or below that median.
func clickPriceProfile(records map[string]Record) (median float64, lowShare float64) {
	type sample struct {
		price  float64
		clicks int64
	}
	var samples []sample
	var totalClicks int64
	for _, rec := range records {
		if rec.Clicks == 0 || rec.Meta.Price <= 0 {
			continue
		}
		samples = append(samples, sample{price: rec.Meta.Price, clicks: rec.Clicks})
		totalClicks += rec.Clicks
	}
	if totalClicks == 0 {
		return 0, 0.5
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].price < samples[j].price })

	var cum int64
	for _, smp := range samples {
		cum += smp.clicks
		if cum*2 >= totalClicks {
			median = smp.price
			break
		}
	}

	var lowClicks int64
	for _, smp := range samples {
		if smp.price <= median {
			lowClicks += smp.clicks
		}
	}
	return median, float64(lowClicks) / float64(totalClicks)
}

// dwellProfile computes average per-view dwell time split by media presence.
func dwellProfile(records map[string]Record) (withMedia, withoutMedia float64) {
	var withDwell, noDwell int64
	var withViews, noViews int64
	for _, rec := range records {
		if rec.Views == 0 {
			continue
		}
		if rec.Meta.HasMedia {
			withDwell += rec.DwellTotalMs
			withViews += rec.Views
		} else {
			noDwell += rec.DwellTotalMs
			noViews += rec.Views
		}
	}
	if withViews > 0 {
		withMedia = float64(withDwell) / float64(withViews)
	}
	if noViews > 0 {
		withoutMedia = float64(noDwell) / float64(noViews)
	}
	return withMedia, withoutMedia
}
