package handler

import (
	"net/http"
	"time"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/order"
)

type orderResponse struct {
	ID                     string                `json:"id"`
	CustomerDetails        order.CustomerDetails `json:"customerDetails"`
	Items                  []orderLineResponse   `json:"items"`
	Total                  float64               `json:"total"`
	DeliveryDate           string                `json:"deliveryDate"`
	DeliveryTime           string                `json:"deliveryTime"`
	AdditionalInstructions string                `json:"additionalInstructions"`
	Status                 string                `json:"status"`
	CreatedAt              time.Time             `json:"createdAt"`
}

type orderLineResponse struct {
	ServiceName string  `json:"serviceName"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = orderLineResponse{
			ServiceName: line.ServiceName,
			Category:    line.Category,
			Price:       line.Price.InexactFloat64(),
			Quantity:    line.Quantity,
		}
	}
	return orderResponse{
		ID:                     o.ID,
		CustomerDetails:        o.CustomerDetails,
		Items:                  items,
		Total:                  o.Total.InexactFloat64(),
		DeliveryDate:           o.DeliveryDate,
		DeliveryTime:           o.DeliveryTime,
		AdditionalInstructions: o.AdditionalInstructions,
		Status:                 string(o.Status),
		CreatedAt:              o.CreatedAt,
	}
}

func toOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req struct {
		CustomerDetails        order.CustomerDetails `json:"customerDetails"`
		DeliveryDate           string                `json:"deliveryDate"`
		DeliveryTime           string                `json:"deliveryTime"`
		AdditionalInstructions string                `json:"additionalInstructions"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.Create(r.Context(), id.UserID, order.CreateRequest{
		CustomerDetails:        req.CustomerDetails,
		DeliveryDate:           req.DeliveryDate,
		DeliveryTime:           req.DeliveryTime,
		AdditionalInstructions: req.AdditionalInstructions,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Status(req.Status))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	o, err := h.orders.Cancel(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
