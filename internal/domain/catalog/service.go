package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested service does not exist.
	ErrNotFound = errors.New("service not found")
	// ErrUnavailable is returned when a service exists but is no longer offered.
	ErrUnavailable = errors.New("service not available")
)

// Service represents a bookable catalog entry. Price is the live price and is
// the only field the discount engine mutates; OriginalPrice holds the
// pre-discount price while a discount is active and is nil otherwise.
type Service struct {
	ID            string
	Name          string
	Category      string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Duration      time.Duration
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines read operations for the service catalog.
type Repository interface {
	List(ctx context.Context) ([]Service, error)
	ListByCategories(ctx context.Context, categories []string) ([]Service, error)
	GetByID(ctx context.Context, id string) (*Service, error)
	GetByIDs(ctx context.Context, ids []string) ([]Service, error)
}
