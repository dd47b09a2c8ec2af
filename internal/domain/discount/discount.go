package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no discount (or no discount with the given
	// id) exists.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidPercentage is returned when a percentage outside [0,100] is
	// supplied.
	ErrInvalidPercentage = errors.New("discount percentage must be between 0 and 100")
	// ErrExpiryInPast is returned when the valid-until timestamp is not in
	// the future.
	ErrExpiryInPast = errors.New("valid until date must be in the future")
	// ErrEmptySelection is returned when the selection resolves to nothing.
	ErrEmptySelection = errors.New("discount selection is empty")
)

// Scope enumerates the selection variants: a discount covers the whole
// catalog, whole categories, or an explicit list of services.
type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeCategories Scope = "categories"
	ScopeServices   Scope = "services"
)

// Selection describes which services a discount applies to. Exactly one of
// Categories/ServiceIDs is meaningful depending on Scope; ScopeAll uses
// neither.
type Selection struct {
	Scope      Scope    `json:"scope"`
	Categories []string `json:"categories,omitempty"`
	ServiceIDs []string `json:"serviceIds,omitempty"`
}

// IsZero reports whether the selection selects nothing.
func (s Selection) IsZero() bool {
	switch s.Scope {
	case ScopeAll:
		return false
	case ScopeCategories:
		return len(s.Categories) == 0
	case ScopeServices:
		return len(s.ServiceIDs) == 0
	default:
		return true
	}
}

// Discount is the single system-wide price promotion. While active, every
// selected service's price equals round(original * (100-percentage)/100) and
// the untouched original is preserved on the service row.
type Discount struct {
	ID         string
	Name       string
	Percentage decimal.Decimal
	ValidUntil time.Time
	Selection  Selection
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the discount's validity window has passed.
func (d *Discount) Expired(now time.Time) bool {
	return now.After(d.ValidUntil)
}

// PriceChange is one service's price rewrite within a discount transaction.
// Original is the baseline to preserve; Price is the new live price.
type PriceChange struct {
	ServiceID string
	Original  decimal.Decimal
	Price     decimal.Decimal
}

// Repository persists the singleton discount slot. Replace and Remove are
// transactional: the discount record and every touched service price commit
// or roll back together, so a partial failure can never leave services
// discounted against an uncommitted record.
type Repository interface {
	// Get returns the current discount, or ErrNotFound when the slot is empty.
	Get(ctx context.Context) (*Discount, error)
	// Replace atomically reverts the services listed in revertIDs to their
	// preserved originals, applies the given price changes, and upserts the
	// discount into the slot.
	Replace(ctx context.Context, d *Discount, revertIDs []string, changes []PriceChange) error
	// Remove atomically reverts the services listed in revertIDs and deletes
	// the discount. Reverting a service with no preserved original is a
	// no-op. It returns the number of services actually reverted.
	Remove(ctx context.Context, id string, revertIDs []string) (int, error)
}
