package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PricedService is the result of resolving a service reference: the live unit
// price plus the descriptive fields order snapshots need.
type PricedService struct {
	ServiceID string
	Name      string
	Category  string
	UnitPrice decimal.Decimal
}

// Resolver resolves service references to their current catalog price. Every
// call reads the repository row again: the discount engine rewrites prices in
// place, so any cached price would go stale the moment a discount is applied
// or reverted.
type Resolver struct {
	services Repository
}

// NewResolver creates a Resolver backed by the given catalog repository.
func NewResolver(services Repository) *Resolver {
	return &Resolver{services: services}
}

// ResolvePrice returns the current unit price of a single service.
// It fails with ErrNotFound for unknown ids and ErrUnavailable for services
// that have been withdrawn from sale.
func (r *Resolver) ResolvePrice(ctx context.Context, serviceID string) (*PricedService, error) {
	svc, err := r.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, ErrUnavailable
	}
	return &PricedService{
		ServiceID: svc.ID,
		Name:      svc.Name,
		Category:  svc.Category,
		UnitPrice: svc.Price,
	}, nil
}

// ResolvePrices resolves a batch of service ids in a single repository query.
// The result preserves the input order. Inactive services resolve like active
// ones here; batch resolution is used for totals over items already admitted
// to a cart, where availability was checked at add time.
func (r *Resolver) ResolvePrices(ctx context.Context, serviceIDs []string) ([]PricedService, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	fetched, err := r.services.GetByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get services")
	}

	byID := make(map[string]*Service, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	priced := make([]PricedService, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		svc, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		priced = append(priced, PricedService{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Category:  svc.Category,
			UnitPrice: svc.Price,
		})
	}
	return priced, nil
}

// Subtotal computes sum(unit price * quantity) for parallel slices of priced
// services and quantities.
func Subtotal(priced []PricedService, quantities []int) decimal.Decimal {
	sum := decimal.Zero
	for i, p := range priced {
		qty := decimal.NewFromInt(int64(quantities[i]))
		sum = sum.Add(p.UnitPrice.Mul(qty))
	}
	return sum
}
