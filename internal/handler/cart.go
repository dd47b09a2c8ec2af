package handler

import (
	"net/http"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/cart"
)

// cartResponse is the JSON shape shared by every cart endpoint: the current
// items priced against the live catalog, plus the derived total.
type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total float64            `json:"total"`
}

type cartItemResponse struct {
	ServiceID string  `json:"serviceId"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func toCartResponse(v *cart.View) cartResponse {
	items := make([]cartItemResponse, len(v.Items))
	for i, item := range v.Items {
		items[i] = cartItemResponse{
			ServiceID: item.ServiceID,
			Name:      item.Name,
			Category:  item.Category,
			Price:     item.Price.InexactFloat64(),
			Quantity:  item.Quantity,
		}
	}
	return cartResponse{Items: items, Total: v.Total.InexactFloat64()}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	view, err := h.carts.Get(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req struct {
		ServiceID string `json:"serviceId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service ID is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.carts.AddItem(r.Context(), id.UserID, req.ServiceID, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req struct {
		ServiceID string `json:"serviceId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service ID is required")
		return
	}

	view, err := h.carts.UpdateItem(r.Context(), id.UserID, req.ServiceID, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	view, err := h.carts.RemoveItem(r.Context(), id.UserID, r.PathValue("serviceID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	view, err := h.carts.Clear(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}
