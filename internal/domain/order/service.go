package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/cart"
)

// Config holds order policy knobs.
type Config struct {
	// StrictTransitions forbids admin status updates that leave a terminal
	// state (completed, cancelled). The permissive default matches the
	// storefront's historical behavior, where an admin could reopen a
	// completed order.
	StrictTransitions bool
}

// CreateRequest is the input for placing an order. Items are not part of the
// request: the order is derived from the user's cart.
type CreateRequest struct {
	CustomerDetails        CustomerDetails
	DeliveryDate           string
	DeliveryTime           string
	AdditionalInstructions string
}

// Service encapsulates order lifecycle business logic.
type Service struct {
	orders Repository
	carts  *cart.Service
	cfg    Config
}

// NewService creates an order Service.
func NewService(orders Repository, carts *cart.Service, cfg Config) *Service {
	return &Service{
		orders: orders,
		carts:  carts,
		cfg:    cfg,
	}
}

// Create places an order from the user's cart. Each cart line's price, name,
// and category are resolved against the live catalog exactly once, here, and
// frozen into the order: cart prices float with the catalog, order prices do
// not. On success the source cart is cleared.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if len(view.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]Line, len(view.Items))
	for i, item := range view.Items {
		lines[i] = Line{
			ServiceName: item.Name,
			Category:    item.Category,
			Price:       item.Price,
			Quantity:    item.Quantity,
		}
	}

	o := &Order{
		ID:                     uuid.New().String(),
		UserID:                 userID,
		CustomerDetails:        req.CustomerDetails,
		Lines:                  lines,
		Total:                  view.Total,
		DeliveryDate:           req.DeliveryDate,
		DeliveryTime:           req.DeliveryTime,
		AdditionalInstructions: req.AdditionalInstructions,
		Status:                 StatusOngoing,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// The cart is the order's source; emptying it is part of the operation's
	// contract, not a best-effort cleanup.
	if _, err := s.carts.Clear(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}

	return o, nil
}

// Get returns an order to its owner or to an admin.
func (s *Service) Get(ctx context.Context, id string, requester auth.Identity) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != requester.UserID && !requester.Admin {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListByUser returns the requester's own orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List returns all orders, newest first. Callers gate this to admins.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// UpdateStatus sets an order's status from the admin path. Any of the four
// lifecycle values is accepted; with strict transitions configured, leaving
// a terminal state is rejected.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if s.cfg.StrictTransitions {
		current, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status.Terminal() && current.Status != status {
			return nil, &TerminalTransitionError{From: current.Status, To: status}
		}
	}

	return s.orders.UpdateStatus(ctx, id, status)
}

// Cancel sets an order to cancelled on behalf of its owner. Completed orders
// cannot be cancelled; cancelling an already cancelled (or postponed) order
// succeeds and leaves it cancelled.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*Order, error) {
	o, err := s.orders.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCompleted {
		return nil, ErrCancelCompleted
	}

	return s.orders.UpdateStatus(ctx, o.ID, StatusCancelled)
}

func validateCreate(req CreateRequest) error {
	checks := []struct {
		field string
		value string
	}{
		{"customer name", req.CustomerDetails.Name},
		{"phone number", req.CustomerDetails.Phone},
		{"delivery address", req.CustomerDetails.Address},
		{"pin code", req.CustomerDetails.Pincode},
		{"delivery date", req.DeliveryDate},
		{"delivery time", req.DeliveryTime},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return &MissingFieldError{Field: c.field}
		}
	}
	return nil
}
