package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
)

const (
	serviceColumns = `id, name, category, price, original_price, duration_minutes, active, created_at, updated_at`

	listServicesSQL = `SELECT ` + serviceColumns + `
		FROM services WHERE active ORDER BY category, name`

	listServicesByCategoriesSQL = `SELECT ` + serviceColumns + `
		FROM services WHERE active AND category = ANY($1) ORDER BY category, name`

	getServiceByIDSQL = `SELECT ` + serviceColumns + `
		FROM services WHERE id = $1`

	getServicesByIDsSQL = `SELECT ` + serviceColumns + `
		FROM services WHERE id = ANY($1)`

	upsertServiceSQL = `INSERT INTO services (id, name, category, price, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			duration_minutes = EXCLUDED.duration_minutes,
			active = EXCLUDED.active,
			updated_at = now()`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all active services.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Service, error) {
	rows, err := r.pool.Query(ctx, listServicesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return pgx.CollectRows(rows, scanService)
}

// ListByCategories returns all active services in any of the given categories.
func (r *CatalogRepository) ListByCategories(ctx context.Context, categories []string) ([]catalog.Service, error) {
	rows, err := r.pool.Query(ctx, listServicesByCategoriesSQL, categories)
	if err != nil {
		return nil, fmt.Errorf("listing services by categories: %w", err)
	}
	return pgx.CollectRows(rows, scanService)
}

// GetByID returns a single service, active or not.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Service, error) {
	rows, err := r.pool.Query(ctx, getServiceByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}

	svc, err := pgx.CollectExactlyOneRow(rows, scanService)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	return &svc, nil
}

// GetByIDs returns services matching any of the given ids.
func (r *CatalogRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Service, error) {
	rows, err := r.pool.Query(ctx, getServicesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting services by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanService)
}

// Upsert inserts or updates a catalog row. Used by the seed and ingest
// commands; the API surface never writes catalog entries.
func (r *CatalogRepository) Upsert(ctx context.Context, svc *catalog.Service) error {
	_, err := r.pool.Exec(ctx, upsertServiceSQL,
		svc.ID, svc.Name, svc.Category, svc.Price,
		int(svc.Duration.Minutes()), svc.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting service %q: %w", svc.ID, err)
	}
	return nil
}

func scanService(row pgx.CollectableRow) (catalog.Service, error) {
	var (
		svc             catalog.Service
		original        decimal.NullDecimal
		durationMinutes int
	)
	err := row.Scan(
		&svc.ID, &svc.Name, &svc.Category, &svc.Price, &original,
		&durationMinutes, &svc.Active, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if original.Valid {
		svc.OriginalPrice = &original.Decimal
	}
	svc.Duration = time.Duration(durationMinutes) * time.Minute
	return svc, err
}
