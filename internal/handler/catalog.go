package handler

import (
	"net/http"

	"github.com/glowspa/glowspa-backend/internal/domain/catalog"
)

type serviceResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

func toServiceResponse(svc *catalog.Service) serviceResponse {
	return serviceResponse{
		ID:              svc.ID,
		Name:            svc.Name,
		Category:        svc.Category,
		Price:           svc.Price.InexactFloat64(),
		DurationMinutes: int(svc.Duration.Minutes()),
	}
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.services.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make([]serviceResponse, len(services))
	for i := range services {
		out[i] = toServiceResponse(&services[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.services.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !svc.Active {
		h.respondError(w, r, catalog.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}
