// Package handler implements the HTTP JSON surface, delegating business
// logic to the domain services and mapping domain errors to status codes.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/cart"
	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
	"github.com/glowspa/glowspa-backend/internal/domain/discount"
	"github.com/glowspa/glowspa-backend/internal/domain/order"
)

// Handler holds the domain dependencies for all routes.
type Handler struct {
	services  catalog.Repository
	carts     *cart.Service
	discounts *discount.Engine
	orders    *order.Service
	verifier  *auth.Verifier
}

// New constructs a Handler with the required domain dependencies.
func New(
	services catalog.Repository,
	carts *cart.Service,
	discounts *discount.Engine,
	orders *order.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		services:  services,
		carts:     carts,
		discounts: discounts,
		orders:    orders,
		verifier:  verifier,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/services", h.listServices)
	mux.HandleFunc("GET /api/services/{id}", h.getService)

	mux.HandleFunc("GET /api/cart", h.requireUser(h.getCart))
	mux.HandleFunc("POST /api/cart/add", h.requireUser(h.addToCart))
	mux.HandleFunc("PUT /api/cart/update", h.requireUser(h.updateCartItem))
	mux.HandleFunc("DELETE /api/cart/remove/{serviceID}", h.requireUser(h.removeFromCart))
	mux.HandleFunc("DELETE /api/cart/clear", h.requireUser(h.clearCart))

	mux.HandleFunc("GET /api/discounts", h.getDiscount)
	mux.HandleFunc("PUT /api/discounts", h.requireAdmin(h.updateDiscount))
	mux.HandleFunc("DELETE /api/discounts/{id}", h.requireAdmin(h.deleteDiscount))

	mux.HandleFunc("POST /api/orders", h.requireUser(h.createOrder))
	mux.HandleFunc("GET /api/orders", h.requireAdmin(h.listOrders))
	mux.HandleFunc("GET /api/orders/my-orders", h.requireUser(h.listMyOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireUser(h.getOrder))
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.requireAdmin(h.updateOrderStatus))
	mux.HandleFunc("PATCH /api/orders/{id}/cancel", h.requireUser(h.cancelOrder))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Code: status, Message: message})
}

// respondError maps a domain error to an HTTP response. Validation and
// lookup failures surface with their message; anything unexpected is logged
// and reported as a generic 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch status, ok := statusFor(err); {
	case ok:
		writeError(w, status, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// statusFor returns the HTTP status for a known domain error.
func statusFor(err error) (int, bool) {
	var (
		missingField  *order.MissingFieldError
		terminalState *order.TerminalTransitionError
	)
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrCancelCompleted),
		errors.Is(err, discount.ErrInvalidPercentage),
		errors.Is(err, discount.ErrExpiryInPast),
		errors.Is(err, discount.ErrEmptySelection),
		errors.As(err, &missingField):
		return http.StatusBadRequest, true
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusUnprocessableEntity, true
	case errors.As(err, &terminalState):
		return http.StatusConflict, true
	}
	return 0, false
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
