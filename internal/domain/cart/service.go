package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
)

// View is a cart together with the display fields resolved from the catalog
// at read time. Prices in a view float with the catalog; only order creation
// freezes them.
type View struct {
	Items []ViewItem
	Total decimal.Decimal
}

// ViewItem is a cart line enriched with the current catalog name and price.
type ViewItem struct {
	ServiceID string
	Name      string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Service implements cart operations. Mutations for the same user are
// serialized with a per-user mutex: cart edits are read-modify-write over the
// items slice, and two concurrent adds would otherwise race.
type Service struct {
	carts    Repository
	resolver *catalog.Resolver

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a cart Service.
func NewService(carts Repository, resolver *catalog.Resolver) *Service {
	return &Service{
		carts:    carts,
		resolver: resolver,
		locks:    make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Get returns the user's cart priced against the current catalog. A user
// without a cart row gets an empty cart with total zero; the missing row is
// not persisted.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &View{Items: []ViewItem{}, Total: decimal.Zero}, nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return s.buildView(ctx, c)
}

// AddItem appends a line for the service or, when a line already exists,
// accumulates its quantity. Quantities below 1 are rejected, unknown services
// fail with catalog.ErrNotFound, and withdrawn services with
// catalog.ErrUnavailable.
func (s *Service) AddItem(ctx context.Context, userID, serviceID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if _, err := uuid.Parse(serviceID); err != nil {
		return nil, catalog.ErrNotFound
	}

	// Existence and availability are checked against the live catalog before
	// the cart is touched.
	if _, err := s.resolver.ResolvePrice(ctx, serviceID); err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "get cart")
		}
		c = &Cart{UserID: userID}
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ServiceID == serviceID {
			c.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, Item{ServiceID: serviceID, Quantity: quantity})
	}

	return s.saveAndView(ctx, c)
}

// UpdateItem sets the quantity of an existing line exactly, unlike AddItem's
// accumulation.
func (s *Service) UpdateItem(ctx context.Context, userID, serviceID string, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ServiceID == serviceID {
			c.Items[i].Quantity = quantity
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	return s.saveAndView(ctx, c)
}

// RemoveItem drops the line for the service. Removing an absent item is a
// no-op returning the unchanged cart; only a missing cart is an error.
func (s *Service) RemoveItem(ctx context.Context, userID, serviceID string) (*View, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ServiceID != serviceID {
			kept = append(kept, item)
		}
	}
	c.Items = kept

	return s.saveAndView(ctx, c)
}

// Clear empties the cart and zeroes the total. The cart row survives.
func (s *Service) Clear(ctx context.Context, userID string) (*View, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Items = nil
	return s.saveAndView(ctx, c)
}

// saveAndView recomputes the total from live catalog prices, persists the
// cart, and returns the priced view. Recomputing on every structural mutation
// is the invariant keeping stored totals honest while discounts rewrite
// catalog prices underneath.
func (s *Service) saveAndView(ctx context.Context, c *Cart) (*View, error) {
	view, err := s.buildView(ctx, c)
	if err != nil {
		return nil, err
	}

	c.Total = view.Total
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return view, nil
}

func (s *Service) buildView(ctx context.Context, c *Cart) (*View, error) {
	if len(c.Items) == 0 {
		return &View{Items: []ViewItem{}, Total: decimal.Zero}, nil
	}

	ids := make([]string, len(c.Items))
	quantities := make([]int, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ServiceID
		quantities[i] = item.Quantity
	}

	priced, err := s.resolver.ResolvePrices(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "resolve prices")
	}

	items := make([]ViewItem, len(c.Items))
	for i, p := range priced {
		items[i] = ViewItem{
			ServiceID: p.ServiceID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.UnitPrice,
			Quantity:  quantities[i],
		}
	}

	return &View{
		Items: items,
		Total: catalog.Subtotal(priced, quantities),
	}, nil
}
