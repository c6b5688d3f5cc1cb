// internal/search/signals/store_test.go
package signals

import (
	"fmt"
	"testing"

	"marketplace-search/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestStore(t *testing.T, maxEntries int) *Store {
	return NewStore(maxEntries, logger.NewTestLogger(t))
}

// ==========================
// Recording Tests
// ==========================

func TestStore_RecordClick(t *testing.T) {
	store := createTestStore(t, 100)

	store.RecordClick("SKU-1", &Meta{Price: 100, HasMedia: true})
	store.RecordClick("SKU-1", nil)
	store.RecordClick("SKU-2", &Meta{Price: 50})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(2), snapshot["SKU-1"].Clicks)
	assert.Equal(t, 100.0, snapshot["SKU-1"].Meta.Price)
	assert.True(t, snapshot["SKU-1"].Meta.HasMedia)
	assert.Equal(t, int64(1), snapshot["SKU-2"].Clicks)
}

func TestStore_RecordView_AccumulatesDwell(t *testing.T) {
	store := createTestStore(t, 100)

	store.RecordView("SKU-1", 1500, nil)
	store.RecordView("SKU-1", 2500, nil)
	store.RecordView("SKU-1", -50, nil) // negative dwell recorded as zero

	snapshot := store.Snapshot()
	assert.Equal(t, int64(3), snapshot["SKU-1"].Views)
	assert.Equal(t, int64(4000), snapshot["SKU-1"].DwellTotalMs)
}

func TestStore_EmptySKU_IsSilentNoOp(t *testing.T) {
	store := createTestStore(t, 100)

	store.RecordClick("", &Meta{Price: 100})
	store.RecordView("", 1000, nil)

	assert.Equal(t, 0, store.Len())
}

// ==========================
// Prune Tests
// ==========================

func TestStore_Prune_KeepsTopByClicksPlusViews(t *testing.T) {
	store := createTestStore(t, 2)

	store.RecordClick("popular", nil)
	store.RecordClick("popular", nil)
	store.RecordClick("popular", nil)
	store.RecordView("middling", 100, nil)
	store.RecordView("middling", 100, nil)
	store.RecordClick("unpopular", nil)

	pruned, kept := store.Prune()
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 2, kept)

	snapshot := store.Snapshot()
	assert.Contains(t, snapshot, "popular")
	assert.Contains(t, snapshot, "middling")
	assert.NotContains(t, snapshot, "unpopular")
}

func TestStore_Prune_UnderCap_NoOp(t *testing.T) {
	store := createTestStore(t, 10)
	store.RecordClick("SKU-1", nil)

	pruned, kept := store.Prune()
	assert.Equal(t, 0, pruned)
	assert.Equal(t, 1, kept)
}

// ==========================
// Weight Computation Tests
// ==========================

func TestStore_ComputeWeeklyWeights_SumsToOne(t *testing.T) {
	tests := []struct {
		name  string
		setup func(store *Store)
	}{
		{
			name:  "empty store",
			setup: func(*Store) {},
		},
		{
			name: "clicks only",
			setup: func(store *Store) {
				store.RecordClick("a", &Meta{Price: 10})
				store.RecordClick("b", &Meta{Price: 500})
			},
		},
		{
			name: "views only",
			setup: func(store *Store) {
				store.RecordView("a", 12000, &Meta{HasMedia: true})
				store.RecordView("b", 800, &Meta{HasMedia: false})
			},
		},
		{
			name: "mixed signals",
			setup: func(store *Store) {
				for i := 0; i < 50; i++ {
					store.RecordClick(fmt.Sprintf("cheap-%d", i%5), &Meta{Price: 20})
					store.RecordView(fmt.Sprintf("rich-%d", i%3), 20000, &Meta{Price: 300, HasMedia: true})
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestStore(t, 1000)
			tt.setup(store)

			est, _ := store.ComputeWeeklyWeights()
			sum := est.Credibility + est.Price + est.Freshness + est.Media
			assert.InDelta(t, 1.0, sum, 1e-6)
			assert.GreaterOrEqual(t, est.Credibility, 0.0)
			assert.GreaterOrEqual(t, est.Price, 0.0)
			assert.GreaterOrEqual(t, est.Freshness, 0.0)
			assert.GreaterOrEqual(t, est.Media, 0.0)
		})
	}
}

func TestStore_ComputeWeeklyWeights_CheapClicksRaisePriceWeight(t *testing.T) {
	cheap := createTestStore(t, 1000)
	for i := 0; i < 9; i++ {
		cheap.RecordClick(fmt.Sprintf("cheap-%d", i), &Meta{Price: 10})
	}
	cheap.RecordClick("expensive", &Meta{Price: 1000})

	balanced := createTestStore(t, 1000)
	balanced.RecordClick("low", &Meta{Price: 10})
	balanced.RecordClick("high", &Meta{Price: 1000})

	cheapEst, cheapDiag := cheap.ComputeWeeklyWeights()
	balancedEst, _ := balanced.ComputeWeeklyWeights()

	assert.Greater(t, cheapDiag.LowPriceClickShare, 0.8)
	assert.Greater(t, cheapEst.Price, balancedEst.Price)
}

func TestStore_ComputeWeeklyWeights_MediaDwellRaisesMediaWeight(t *testing.T) {
	store := createTestStore(t, 1000)
	store.RecordView("with-media", 20000, &Meta{HasMedia: true})
	store.RecordView("no-media", 1000, &Meta{HasMedia: false})

	est, diag := store.ComputeWeeklyWeights()
	assert.Equal(t, 20000.0, diag.AvgDwellWithMedia)
	assert.Equal(t, 1000.0, diag.AvgDwellNoMedia)
	assert.Greater(t, est.Media, 0.0)
}

func TestStore_ComputeWeeklyWeights_LowMediaDwellYieldsZeroMediaWeight(t *testing.T) {
	store := createTestStore(t, 1000)
	store.RecordView("with-media", 2000, &Meta{HasMedia: true}) // below the 5000ms floor
	store.RecordView("no-media", 1000, &Meta{HasMedia: false})

	est, _ := store.ComputeWeeklyWeights()
	assert.Equal(t, 0.0, est.Media)
}

func TestStore_ComputeWeeklyWeights_DoesNotMutate(t *testing.T) {
	store := createTestStore(t, 1000)
	store.RecordClick("a", &Meta{Price: 100})

	before := store.Snapshot()
	_, _ = store.ComputeWeeklyWeights()
	after := store.Snapshot()

	assert.Equal(t, before, after)
}
