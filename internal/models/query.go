// internal/models/query.go
package models

// SortMode enumerates the supported result orderings.
type SortMode string

const (
	SortRank      SortMode = "rank"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortNewest    SortMode = "newest"
	SortPopular   SortMode = "popular"
)

// ValidSortMode reports whether s is one of the supported sort modes.
func ValidSortMode(s SortMode) bool {
	switch s {
	case SortRank, SortPriceAsc, SortPriceDesc, SortNewest, SortPopular:
		return true
	}
	return false
}

// Expansion tokens controlling relation hydration and cacheability.
const (
	ExpandVendor    = "vendor"
	ExpandWarehouse = "warehouse"
	ExpandMedia     = "media"
	ExpandVariants  = "variants"
)

// ModeFacets requests group-count summaries alongside items.
const ModeFacets = "facets"

// SearchRequest is the normalized filter set for one query.
type SearchRequest struct {
	Tenant      string    `json:"tenant"`
	Query       string    `json:"q,omitempty"`
	Category    string    `json:"category,omitempty"`
	Material    string    `json:"material,omitempty"`
	Thickness   []float64 `json:"thickness,omitempty"`
	PriceMin    *float64  `json:"priceMin,omitempty"`
	PriceMax    *float64  `json:"priceMax,omitempty"`
	RatingMin   *float64  `json:"ratingMin,omitempty"`
	Sort        SortMode  `json:"sort,omitempty"`
	Page        int       `json:"page,omitempty"`
	Limit       int       `json:"limit,omitempty"`
	Expand      []string  `json:"expand,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	RankWeights string    `json:"rankWeights,omitempty"`
}

// HasExpand reports whether the request carries a given expansion token.
func (r *SearchRequest) HasExpand(token string) bool {
	for _, e := range r.Expand {
		if e == token {
			return true
		}
	}
	return false
}

// Facets holds best-effort group counts over a bounded candidate sample.
type Facets struct {
	Materials map[string]int64 `json:"materials,omitempty"`
	Thickness map[string]int64 `json:"thickness,omitempty"`
}

// FallbackInfo records a prefix-fallback substitution.
type FallbackInfo struct {
	Original string `json:"original"`
	Used     string `json:"used"`
}

// FuzzyInfo records a fuzzy-match resolution.
type FuzzyInfo struct {
	Original string `json:"original"`
	Total    int    `json:"total"`
}

// FuzzyItem is the degraded partial shape returned by the fuzzy path.
// Callers must not treat these as full listing records.
type FuzzyItem struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Cache outcome values for ResponseMeta.Cache.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	CacheSkip = "skip"
)

// ResponseMeta carries per-response diagnostics.
type ResponseMeta struct {
	WeightVersion int64  `json:"weightVersion"`
	Cache         string `json:"cache"`
	Degraded      bool   `json:"degraded,omitempty"`
}

// SearchResponse is the ranked result page.
type SearchResponse struct {
	Items      []Listing     `json:"items"`
	FuzzyItems []FuzzyItem   `json:"fuzzyItems,omitempty"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Facets     *Facets       `json:"facets,omitempty"`
	Fallback   *FallbackInfo `json:"fallback,omitempty"`
	Fuzzy      *FuzzyInfo    `json:"fuzzy,omitempty"`
	Meta       ResponseMeta  `json:"meta"`
}
