package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowspa/glowspa-backend/internal/domain/discount"
)

const (
	getDiscountSQL = `SELECT id, name, percentage, valid_until, selection, created_at, updated_at
		FROM discount_slot WHERE slot = 1`

	upsertDiscountSQL = `INSERT INTO discount_slot (slot, id, name, percentage, valid_until, selection)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (slot) DO UPDATE SET
			id = EXCLUDED.id,
			name = EXCLUDED.name,
			percentage = EXCLUDED.percentage,
			valid_until = EXCLUDED.valid_until,
			selection = EXCLUDED.selection,
			updated_at = now()`

	deleteDiscountSQL = `DELETE FROM discount_slot WHERE slot = 1 AND id = $1`

	// Reverting restores the preserved baseline and clears the set-aside.
	// Rows without a baseline are untouched, making reverts idempotent.
	revertPricesSQL = `UPDATE services
		SET price = original_price, original_price = NULL, updated_at = now()
		WHERE id = ANY($1) AND original_price IS NOT NULL`

	applyPriceSQL = `UPDATE services
		SET original_price = $2, price = $3, updated_at = now()
		WHERE id = $1`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// The discount lives in a single-row slot table, so the system-wide singleton
// is enforced by the schema rather than by a most-recent query. Replace and
// Remove also rewrite service prices; both run in one transaction so a
// failure partway leaves no service discounted against an uncommitted record.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Get returns the slotted discount, or discount.ErrNotFound when the slot is
// empty.
func (r *DiscountRepository) Get(ctx context.Context) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, getDiscountSQL)
	if err != nil {
		return nil, fmt.Errorf("getting discount: %w", err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount: %w", err)
	}
	return &d, nil
}

// Replace atomically reverts the previous discount's prices, applies the new
// price changes, and upserts the discount into the slot.
func (r *DiscountRepository) Replace(ctx context.Context, d *discount.Discount, revertIDs []string, changes []discount.PriceChange) error {
	selectionJSON, err := json.Marshal(d.Selection)
	if err != nil {
		return fmt.Errorf("marshaling selection: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(revertIDs) > 0 {
		if _, err := tx.Exec(ctx, revertPricesSQL, revertIDs); err != nil {
			return fmt.Errorf("reverting previous prices: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, ch := range changes {
		batch.Queue(applyPriceSQL, ch.ServiceID, ch.Original, ch.Price)
	}
	batch.Queue(upsertDiscountSQL, d.ID, d.Name, d.Percentage, d.ValidUntil, selectionJSON)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("applying discount batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing discount: %w", err)
	}
	return nil
}

// Remove atomically reverts the given services and deletes the discount.
// It returns the number of services whose price was actually reverted.
func (r *DiscountRepository) Remove(ctx context.Context, id string, revertIDs []string) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reverted := 0
	if len(revertIDs) > 0 {
		tag, err := tx.Exec(ctx, revertPricesSQL, revertIDs)
		if err != nil {
			return 0, fmt.Errorf("reverting prices: %w", err)
		}
		reverted = int(tag.RowsAffected())
	}

	tag, err := tx.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return 0, fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, discount.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing discount removal: %w", err)
	}
	return reverted, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d             discount.Discount
		selectionJSON []byte
	)
	err := row.Scan(&d.ID, &d.Name, &d.Percentage, &d.ValidUntil, &selectionJSON, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return discount.Discount{}, err
	}
	if err := json.Unmarshal(selectionJSON, &d.Selection); err != nil {
		return discount.Discount{}, fmt.Errorf("unmarshaling selection: %w", err)
	}
	return d, nil
}
