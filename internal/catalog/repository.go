// internal/catalog/repository.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-search/internal/common/logger"
	"marketplace-search/internal/models"
)

// Repository reads catalog snapshots from PostgreSQL. It feeds the mirror;
// the ranking subsystem itself never writes to the catalog.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewRepository creates a catalog repository over an open database handle.
func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-repository"}),
	}
}

const listingColumns = `tenant, sku, name, category, material, thickness,
	price, currency, credibility, created_at, active,
	vendor, warehouse, media_count, has_video, has_360`

// LoadListings returns all active listings for a tenant, suitable for a
// mirror snapshot. Media item detail lives only in the search store; the
// snapshot carries the summary columns.
func (r *Repository) LoadListings(ctx context.Context, tenant string) ([]models.Listing, error) {
	query := fmt.Sprintf(`SELECT %s FROM listings WHERE tenant = $1 AND active = true`, listingColumns)

	rows, err := r.db.QueryContext(ctx, query, tenant)
	if err != nil {
		return nil, fmt.Errorf("load listings for tenant %s: %w", tenant, err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		var mediaCount int
		var hasVideo, has360 bool
		if err := rows.Scan(
			&l.Tenant, &l.SKU, &l.Name, &l.Category, &l.Material, &l.Thickness,
			&l.Price, &l.Currency, &l.Credibility, &l.CreatedAt, &l.Active,
			&l.Vendor, &l.Warehouse, &mediaCount, &hasVideo, &has360,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		if mediaCount > 0 {
			l.Media = &models.MediaSummary{Count: mediaCount, HasVideo: hasVideo, Has360: has360}
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}

	return listings, nil
}

// Tenants returns the distinct tenants present in the catalog.
func (r *Repository) Tenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT tenant FROM listings WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// CountActive returns the number of active listings for a tenant.
func (r *Repository) CountActive(ctx context.Context, tenant string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE tenant = $1 AND active = true`, tenant,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active listings: %w", err)
	}
	return count, nil
}

// RefreshMirror reloads every tenant's snapshot into the mirror. Per-tenant
// failures are logged and skipped so one tenant cannot block the rest.
func (r *Repository) RefreshMirror(ctx context.Context, mirror *Mirror) error {
	tenants, err := r.Tenants(ctx)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		listings, err := r.LoadListings(ctx, tenant)
		if err != nil {
			r.logger.Warn("mirror refresh failed for tenant", map[string]interface{}{
				"tenant": tenant,
				"error":  err.Error(),
			})
			continue
		}
		mirror.Replace(tenant, listings)
	}
	return nil
}
