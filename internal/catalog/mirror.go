// internal/catalog/mirror.go
package catalog

import (
	"sync"
	"time"

	"marketplace-search/internal/models"
)

// Mirror is an in-process snapshot of the catalog, refreshed out of band.
// It backs degraded-mode searches when the primary store is unreachable and
// feeds the fuzzy index. Reads see whole snapshots; Replace swaps a tenant's
// listing set atomically.
type Mirror struct {
	mu        sync.RWMutex
	byTenant  map[string][]models.Listing
	refreshed map[string]time.Time
}

// NewMirror creates an empty catalog mirror.
func NewMirror() *Mirror {
	return &Mirror{
		byTenant:  make(map[string][]models.Listing),
		refreshed: make(map[string]time.Time),
	}
}

// Replace swaps the full listing set for a tenant.
func (m *Mirror) Replace(tenant string, listings []models.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTenant[tenant] = listings
	m.refreshed[tenant] = time.Now().UTC()
}

// All returns a copy of the listings mirrored for a tenant.
func (m *Mirror) All(tenant string) []models.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listings := m.byTenant[tenant]
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	return out
}

// Tenants returns the tenants currently mirrored.
func (m *Mirror) Tenants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.byTenant))
	for tenant := range m.byTenant {
		out = append(out, tenant)
	}
	return out
}

// RefreshedAt returns when a tenant's snapshot was last replaced.
func (m *Mirror) RefreshedAt(tenant string) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshed[tenant]
}

// Len returns the number of listings mirrored for a tenant.
func (m *Mirror) Len(tenant string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byTenant[tenant])
}
