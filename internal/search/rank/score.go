// internal/search/rank/score.go
package rank

import (
	"math"
	"sort"
	"time"

	"marketplace-search/internal/models"
	"marketplace-search/internal/search/tuner"
)

const (
	videoBoost    = 1.5
	spinBoost     = 1.3
	firstBoost    = 1.25
	varietyBonus  = 0.1
	varietyCap    = 0.2
	videoFlat     = 0.25
	spinFlat      = 0.15
	fallbackQual  = 0.5
	popularWindow = 180 * 24 * time.Hour
)

// bounds holds the candidate-set min/max used for normalization. They are
// computed once over the full candidate set before any item is scored.
type bounds struct {
	priceMin, priceMax float64
	freshMin, freshMax time.Time
	mediaMin, mediaMax float64
}

func computeBounds(items []models.Listing, mediaRaw []float64) bounds {
	b := bounds{}
	for i, item := range items {
		if i == 0 {
			b.priceMin, b.priceMax = item.Price, item.Price
			b.freshMin, b.freshMax = item.CreatedAt, item.CreatedAt
			b.mediaMin, b.mediaMax = mediaRaw[0], mediaRaw[0]
			continue
		}
		if item.Price < b.priceMin {
			b.priceMin = item.Price
		}
		if item.Price > b.priceMax {
			b.priceMax = item.Price
		}
		if item.CreatedAt.Before(b.freshMin) {
			b.freshMin = item.CreatedAt
		}
		if item.CreatedAt.After(b.freshMax) {
			b.freshMax = item.CreatedAt
		}
		if mediaRaw[i] < b.mediaMin {
			b.mediaMin = mediaRaw[i]
		}
		if mediaRaw[i] > b.mediaMax {
			b.mediaMax = mediaRaw[i]
		}
	}
	return b
}

// priceNorm maps cheaper to higher. Degenerate bounds yield a neutral 0.5
// so a uniform candidate set neither rewards nor punishes anyone.
func priceNorm(price float64, b bounds) float64 {
	if b.priceMax <= b.priceMin {
		return 0.5
	}
	return (b.priceMax - price) / (b.priceMax - b.priceMin)
}

func freshnessNorm(created time.Time, b bounds) float64 {
	span := b.freshMax.Sub(b.freshMin)
	if span <= 0 {
		return 0.5
	}
	return float64(created.Sub(b.freshMin)) / float64(span)
}

// credibilityNorm detects the source scale: values at or below 5 are read
// as a 0-5 rating, anything above as a 0-100 score.
func credibilityNorm(cred float64) float64 {
	var norm float64
	if cred <= 5 {
		norm = cred / 5
	} else {
		norm = cred / 100
	}
	return clamp01(norm)
}

func mediaNorm(raw float64, b bounds) float64 {
	if b.mediaMax <= b.mediaMin {
		return 0.5
	}
	return (raw - b.mediaMin) / (b.mediaMax - b.mediaMin)
}

// mediaRawScore builds the pre-normalization media richness score: quality
// boosted by type and lead position, log-dampened by item count, with a
// variety bonus and flat bonuses for video and 360 presence.
func mediaRawScore(m *models.MediaSummary) float64 {
	if m == nil || m.Count == 0 {
		return 0
	}

	base := 0.0
	types := map[models.MediaType]bool{}
	for _, item := range m.Items {
		q := clamp01(item.Quality)
		boost := 1.0
		switch item.Type {
		case models.MediaVideo:
			boost = videoBoost
		case models.Media360:
			boost = spinBoost
		}
		if item.Position == 0 {
			boost *= firstBoost
		}
		base += q * boost
		types[item.Type] = true
	}

	// Mirror snapshots carry counts without per-item detail
	if len(m.Items) == 0 {
		base = fallbackQual * float64(m.Count)
	}

	score := base / (1 + math.Log(1+float64(m.Count)))

	if len(types) >= 2 {
		score += math.Min(varietyBonus*float64(len(types)-1), varietyCap)
	}
	if m.HasVideo {
		score += videoFlat
	}
	if m.Has360 {
		score += spinFlat
	}
	return score
}

// scoreAndSort ranks candidates in place according to the sort mode. Rank
// mode applies the weighted composite; the other modes sort on a single
// attribute. Ties always break on SKU ascending so pages are stable.
func scoreAndSort(items []models.Listing, mode models.SortMode, w tuner.Vector, now time.Time) {
	switch mode {
	case models.SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Price != items[j].Price {
				return items[i].Price < items[j].Price
			}
			return items[i].SKU < items[j].SKU
		})
	case models.SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Price != items[j].Price {
				return items[i].Price > items[j].Price
			}
			return items[i].SKU < items[j].SKU
		})
	case models.SortNewest:
		sort.SliceStable(items, func(i, j int) bool {
			if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
				return items[i].CreatedAt.After(items[j].CreatedAt)
			}
			return items[i].SKU < items[j].SKU
		})
	case models.SortPopular:
		scores := make([]float64, len(items))
		for i := range items {
			scores[i] = popularScore(items[i], now)
		}
		sortByScore(items, scores)
	default:
		mediaRaw := make([]float64, len(items))
		for i := range items {
			mediaRaw[i] = mediaRawScore(items[i].Media)
		}
		b := computeBounds(items, mediaRaw)
		scores := make([]float64, len(items))
		for i := range items {
			scores[i] = composite(items[i], mediaRaw[i], b, w)
		}
		sortByScore(items, scores)
	}
}

func composite(item models.Listing, mediaRaw float64, b bounds, w tuner.Vector) float64 {
	return w.Credibility*credibilityNorm(item.Credibility) +
		w.Price*priceNorm(item.Price, b) +
		w.Freshness*freshnessNorm(item.CreatedAt, b) +
		w.Media*mediaNorm(mediaRaw, b)
}

// popularScore is a standalone heuristic, not a reweighted composite: media
// presence, recency within a 180-day window, and a flat affordability nudge.
func popularScore(item models.Listing, now time.Time) float64 {
	score := 0.0
	if item.HasMedia() {
		score += 0.3
	}
	age := now.Sub(item.CreatedAt)
	if age < 0 {
		age = 0
	}
	recency := 1 - float64(age)/float64(popularWindow)
	score += 0.4 * clamp01(recency)
	if item.Price > 0 {
		score += 0.3 / (1 + math.Log(1+item.Price/100))
	}
	return score
}

func sortByScore(items []models.Listing, scores []float64) {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, c int) bool {
		if scores[idx[a]] != scores[idx[c]] {
			return scores[idx[a]] > scores[idx[c]]
		}
		return items[idx[a]].SKU < items[idx[c]].SKU
	})
	out := make([]models.Listing, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	copy(items, out)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
