// internal/models/listing.go
package models

import "time"

// MediaType identifies the kind of media asset attached to a listing.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	Media360   MediaType = "360"
)

// MediaItem is a single media asset summary.
type MediaItem struct {
	Type     MediaType `json:"type"`
	Quality  float64   `json:"quality"` // 0-1 per-asset quality score
	Position int       `json:"position"`
}

// MediaSummary aggregates a listing's media assets.
type MediaSummary struct {
	Count    int         `json:"count"`
	Items    []MediaItem `json:"items,omitempty"`
	HasVideo bool        `json:"hasVideo"`
	Has360   bool        `json:"has360"`
}

// Listing is a catalog entry. The ranking subsystem only reads listings;
// the catalog store owns all mutations.
type Listing struct {
	Tenant      string        `json:"tenant"`
	SKU         string        `json:"sku"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Material    string        `json:"material"`
	Thickness   float64       `json:"thickness"`
	Price       float64       `json:"price"`
	Currency    string        `json:"currency"`
	Credibility float64       `json:"credibility"` // stored on a 0-5 or 0-100 scale, normalized at read time
	CreatedAt   time.Time     `json:"createdAt"`
	Active      bool          `json:"active"`
	Media       *MediaSummary `json:"media,omitempty"`
	Vendor      string        `json:"vendor,omitempty"`
	Warehouse   string        `json:"warehouse,omitempty"`
}

// HasMedia reports whether the listing has at least one media asset.
func (l *Listing) HasMedia() bool {
	return l.Media != nil && l.Media.Count > 0
}
