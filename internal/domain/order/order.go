package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the finite order lifecycle state.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusPostponed Status = "postponed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusPostponed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	// ErrEmptyCart is returned when order creation finds no items to snapshot.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the requester is neither the order's
	// owner nor an admin.
	ErrForbidden = errors.New("not authorized to view this order")
	// ErrCancelCompleted is returned when an owner cancels a completed order.
	ErrCancelCompleted = errors.New("cannot cancel completed order")
	// ErrInvalidStatus is returned for status values outside the lifecycle.
	ErrInvalidStatus = errors.New("invalid order status")
)

// MissingFieldError indicates a required order field was not supplied.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// TerminalTransitionError indicates an admin status update tried to leave a
// terminal state while strict transitions are enforced.
type TerminalTransitionError struct {
	From Status
	To   Status
}

func (e *TerminalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s order to %s", e.From, e.To)
}

// CustomerDetails is the delivery contact block captured on every order.
type CustomerDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

// Line is a frozen snapshot of one booked service: descriptive fields and the
// unit price as resolved at creation time. It holds no service reference, so
// later catalog edits, discount expiry, or even service deletion cannot
// retroactively change a placed order.
type Line struct {
	ServiceName string          `json:"serviceName"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Order is an immutable booking snapshot. Only Status ever changes after
// creation; orders are never deleted.
type Order struct {
	ID                     string
	UserID                 string
	CustomerDetails        CustomerDetails
	Lines                  []Line
	Total                  decimal.Decimal
	DeliveryDate           string
	DeliveryTime           string
	AdditionalInstructions string
	Status                 Status
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Repository defines persistence for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns ErrNotFound when the order does not exist.
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetOwned returns ErrNotFound both for missing orders and for orders
	// owned by someone else, so owners cannot probe other users' order ids.
	GetOwned(ctx context.Context, id, userID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}
