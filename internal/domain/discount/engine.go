package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// Engine owns the discount lifecycle: NoDiscount -> Active -> (expired |
// deleted) -> NoDiscount. At most one discount is active; applying a new one
// always reverts the previous one first, so prices never stack.
type Engine struct {
	discounts Repository
	services  catalog.Repository
	lg        *zap.Logger

	now func() time.Time
}

// NewEngine creates a discount Engine.
func NewEngine(discounts Repository, services catalog.Repository, lg *zap.Logger) *Engine {
	return &Engine{
		discounts: discounts,
		services:  services,
		lg:        lg,
		now:       time.Now,
	}
}

// Active returns the currently active discount, or nil when none exists.
// An expired discount is not returned as stale data: reading it triggers
// reversal of every selected price and deletion of the record. Expiry is
// only ever detected here (and on Apply), so prices of an unread expired
// discount stay rewritten until the next read.
func (e *Engine) Active(ctx context.Context) (*Discount, error) {
	d, err := e.discounts.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get discount")
	}

	if d.Expired(e.now()) {
		if err := e.expire(ctx, d); err != nil {
			return nil, errors.Wrap(err, "expire discount")
		}
		return nil, nil
	}

	return d, nil
}

// Apply validates and installs a new discount, replacing any existing one.
// The previous discount's prices are reverted and the new prices applied in
// one storage transaction. For each selected service the pre-discount price
// is captured exactly once: services already carrying an original keep it.
func (e *Engine) Apply(ctx context.Context, name string, percentage decimal.Decimal, validUntil time.Time, sel Selection) (*Discount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("discount name is required")
	}
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return nil, ErrInvalidPercentage
	}
	if !validUntil.After(e.now()) {
		return nil, ErrExpiryInPast
	}
	if sel.IsZero() {
		return nil, ErrEmptySelection
	}

	selected, err := e.resolveSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	// Revert the previous discount before applying, never on top of it.
	var revertIDs []string
	prev, err := e.discounts.Get(ctx)
	switch {
	case err == nil:
		revertIDs, err = e.selectionIDs(ctx, prev.Selection)
		if err != nil {
			return nil, errors.Wrap(err, "resolve previous selection")
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, errors.Wrap(err, "get previous discount")
	}

	changes := make([]PriceChange, 0, len(selected))
	for _, svc := range selected {
		original := svc.Price
		if svc.OriginalPrice != nil {
			original = *svc.OriginalPrice
		}
		changes = append(changes, PriceChange{
			ServiceID: svc.ID,
			Original:  original,
			Price:     DiscountedPrice(original, percentage),
		})
	}

	d := prev
	if d == nil {
		d = &Discount{ID: uuid.New().String()}
	}
	d.Name = name
	d.Percentage = percentage
	d.ValidUntil = validUntil
	d.Selection = sel

	if err := e.discounts.Replace(ctx, d, revertIDs, changes); err != nil {
		return nil, errors.Wrap(err, "replace discount")
	}

	e.lg.Info("discount applied",
		zap.String("id", d.ID),
		zap.String("name", d.Name),
		zap.String("percentage", percentage.String()),
		zap.Int("services", len(changes)),
	)
	return d, nil
}

// Remove deletes the discount with the given id, reverting every selected
// service to its preserved original price and clearing the set-aside.
// Services with no preserved original are skipped, not failed, so Remove is
// idempotent per service. It returns the number of services reverted.
func (e *Engine) Remove(ctx context.Context, id string) (int, error) {
	d, err := e.discounts.Get(ctx)
	if err != nil {
		return 0, err
	}
	if d.ID != id {
		// A stale admin view referencing a replaced discount must not tear
		// down the current one.
		return 0, ErrNotFound
	}

	ids, err := e.selectionIDs(ctx, d.Selection)
	if err != nil {
		return 0, errors.Wrap(err, "resolve selection")
	}

	reverted, err := e.discounts.Remove(ctx, d.ID, ids)
	if err != nil {
		return 0, errors.Wrap(err, "remove discount")
	}

	e.lg.Info("discount removed",
		zap.String("id", d.ID),
		zap.Int("reverted", reverted),
	)
	return reverted, nil
}

// expire tears down a discount whose validity window passed.
func (e *Engine) expire(ctx context.Context, d *Discount) error {
	ids, err := e.selectionIDs(ctx, d.Selection)
	if err != nil {
		return errors.Wrap(err, "resolve selection")
	}

	reverted, err := e.discounts.Remove(ctx, d.ID, ids)
	if err != nil {
		return err
	}

	e.lg.Info("expired discount reverted",
		zap.String("id", d.ID),
		zap.Time("valid_until", d.ValidUntil),
		zap.Int("reverted", reverted),
	)
	return nil
}

// resolveSelection expands a selection into the concrete services it covers.
func (e *Engine) resolveSelection(ctx context.Context, sel Selection) ([]catalog.Service, error) {
	switch sel.Scope {
	case ScopeAll:
		return e.services.List(ctx)
	case ScopeCategories:
		return e.services.ListByCategories(ctx, sel.Categories)
	case ScopeServices:
		return e.services.GetByIDs(ctx, sel.ServiceIDs)
	default:
		return nil, errors.Errorf("unsupported selection scope: %q", sel.Scope)
	}
}

// selectionIDs expands a selection to service ids only.
func (e *Engine) selectionIDs(ctx context.Context, sel Selection) ([]string, error) {
	selected, err := e.resolveSelection(ctx, sel)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(selected))
	for i, svc := range selected {
		ids[i] = svc.ID
	}
	return ids, nil
}

// DiscountedPrice computes round(original * (100-percentage)/100) to a whole
// currency unit. Rounding is half away from zero, which for non-negative
// prices means half-up; reversal restores the preserved original rather than
// recomputing, so apply/revert cycles round-trip exactly.
func DiscountedPrice(original, percentage decimal.Decimal) decimal.Decimal {
	return original.Mul(hundred.Sub(percentage)).Div(hundred).Round(0)
}
