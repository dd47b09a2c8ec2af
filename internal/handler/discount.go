package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
	"github.com/glowspa/glowspa-backend/internal/domain/discount"
)

// selectionJSON is the wire shape of a discount selection, kept compatible
// with the storefront admin UI: an all flag plus boolean maps keyed by
// category or service id. Internally it collapses to a tagged variant.
type selectionJSON struct {
	All        bool            `json:"all"`
	Categories map[string]bool `json:"categories"`
	Services   map[string]bool `json:"services"`
}

func (s selectionJSON) toSelection() discount.Selection {
	if s.All {
		return discount.Selection{Scope: discount.ScopeAll}
	}
	if ids := trueKeys(s.Categories); len(ids) > 0 {
		return discount.Selection{Scope: discount.ScopeCategories, Categories: ids}
	}
	return discount.Selection{Scope: discount.ScopeServices, ServiceIDs: trueKeys(s.Services)}
}

func toSelectionJSON(sel discount.Selection) selectionJSON {
	out := selectionJSON{
		Categories: map[string]bool{},
		Services:   map[string]bool{},
	}
	switch sel.Scope {
	case discount.ScopeAll:
		out.All = true
	case discount.ScopeCategories:
		for _, id := range sel.Categories {
			out.Categories[id] = true
		}
	case discount.ScopeServices:
		for _, id := range sel.ServiceIDs {
			out.Services[id] = true
		}
	}
	return out
}

func trueKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			keys = append(keys, k)
		}
	}
	return keys
}

type discountResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Percentage float64       `json:"percentage"`
	ValidUntil time.Time     `json:"validUntil"`
	Services   selectionJSON `json:"services"`
}

func toDiscountResponse(d *discount.Discount) discountResponse {
	return discountResponse{
		ID:         d.ID,
		Name:       d.Name,
		Percentage: d.Percentage.InexactFloat64(),
		ValidUntil: d.ValidUntil,
		Services:   toSelectionJSON(d.Selection),
	}
}

// getDiscount returns the active discount, or null when none exists. Reading
// an expired discount reverts its prices and removes it before responding.
func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.Active(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if d == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountResponse(d))
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	var req struct {
		Name       string         `json:"name"`
		Percentage *float64       `json:"percentage"`
		ValidUntil string         `json:"validUntil"`
		Services   *selectionJSON `json:"services"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Percentage == nil || req.ValidUntil == "" || req.Services == nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format")
		return
	}

	d, err := h.discounts.Apply(r.Context(),
		req.Name,
		decimal.NewFromFloat(*req.Percentage),
		validUntil,
		req.Services.toSelection(),
	)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountResponse(d))
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	affected, err := h.discounts.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "discount deleted successfully",
		"affectedServices": affected,
	})
}
