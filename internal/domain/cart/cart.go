package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an operation requires an existing cart
	// (or item) and none exists.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart exists but holds no line item
	// for the referenced service.
	ErrItemNotFound = errors.New("item not found in cart")
	// ErrInvalidQuantity is returned when a quantity below 1 is supplied.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Item is one line of a cart: a service reference and a quantity. Items never
// store prices; the total is always derived from the live catalog.
type Item struct {
	ServiceID string `json:"serviceId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the per-user mutable collection of items with a derived total.
// Item order is insertion order, kept for display only.
type Cart struct {
	UserID    string
	Items     []Item
	Total     decimal.Decimal
	UpdatedAt time.Time
}

// Repository defines persistence for carts. Get returns ErrNotFound when the
// user has no cart row; Save upserts the full cart state.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}
