// internal/search/tuner/weights.go
package tuner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "marketplace-search/internal/common/errors"
)

// Vector is the four-way scoring weight vector. A normalized vector's
// components sum to 1.
type Vector struct {
	Credibility float64 `json:"credibility"`
	Price       float64 `json:"price"`
	Freshness   float64 `json:"freshness"`
	Media       float64 `json:"media"`
}

// DefaultVector is the static vector used when tuning is disabled.
func DefaultVector() Vector {
	return Vector{Credibility: 0.5, Price: 0.3, Freshness: 0.2, Media: 0.0}
}

// Validate checks that every component is a finite non-negative number and
// that at least one component is positive.
func (v Vector) Validate() error {
	components := map[string]float64{
		"credibility": v.Credibility,
		"price":       v.Price,
		"freshness":   v.Freshness,
		"media":       v.Media,
	}
	for name, val := range components {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return apperrors.NewInvalidWeightsError(fmt.Sprintf("%s is not finite", name))
		}
		if val < 0 {
			return apperrors.NewInvalidWeightsError(fmt.Sprintf("%s is negative: %v", name, val))
		}
	}
	if v.Credibility+v.Price+v.Freshness+v.Media == 0 {
		return apperrors.NewInvalidWeightsError("all components are zero")
	}
	return nil
}

// Normalize scales the vector so its components sum to 1. Zero vectors
// normalize to the default.
func (v Vector) Normalize() Vector {
	sum := v.Credibility + v.Price + v.Freshness + v.Media
	if sum <= 0 {
		return DefaultVector()
	}
	return Vector{
		Credibility: v.Credibility / sum,
		Price:       v.Price / sum,
		Freshness:   v.Freshness / sum,
		Media:       v.Media / sum,
	}
}

// Equal reports whether two vectors are equal within a small tolerance.
func (v Vector) Equal(other Vector) bool {
	const eps = 1e-9
	return math.Abs(v.Credibility-other.Credibility) < eps &&
		math.Abs(v.Price-other.Price) < eps &&
		math.Abs(v.Freshness-other.Freshness) < eps &&
		math.Abs(v.Media-other.Media) < eps
}

// FormatVector renders the canonical compact string encoding, e.g.
// "credibility:0.5,price:0.3,freshness:0.2,media:0".
func FormatVector(v Vector) string {
	return fmt.Sprintf("credibility:%s,price:%s,freshness:%s,media:%s",
		strconv.FormatFloat(v.Credibility, 'f', -1, 64),
		strconv.FormatFloat(v.Price, 'f', -1, 64),
		strconv.FormatFloat(v.Freshness, 'f', -1, 64),
		strconv.FormatFloat(v.Media, 'f', -1, 64),
	)
}

// ParseVector parses the compact string encoding. All four named keys must be
// present and numeric, otherwise nil is returned. Callers must treat nil as
// "not overridden", never as zero weights.
func ParseVector(s string) *Vector {
	parts := strings.Split(strings.TrimSpace(s), ",")
	seen := make(map[string]float64, 4)
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil
		}
		key := strings.TrimSpace(kv[0])
		val, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil
		}
		switch key {
		case "credibility", "price", "freshness", "media":
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = val
		default:
			return nil
		}
	}
	if len(seen) != 4 {
		return nil
	}
	return &Vector{
		Credibility: seen["credibility"],
		Price:       seen["price"],
		Freshness:   seen["freshness"],
		Media:       seen["media"],
	}
}
