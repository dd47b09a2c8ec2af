package handler

import (
	"net/http"
	"strings"

	"github.com/glowspa/glowspa-backend/internal/domain/auth"
)

// identityHandler is a route handler that requires a verified requester.
type identityHandler func(w http.ResponseWriter, r *http.Request, id auth.Identity)

// requireUser authenticates the request and passes the verified identity to
// the wrapped handler. Missing or invalid credentials get a 401.
func (h *Handler) requireUser(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)), id)
	}
}

// requireAdmin is requireUser plus an admin check; non-admins get a 403.
func (h *Handler) requireAdmin(next identityHandler) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request, id auth.Identity) {
		if !id.Admin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, id)
	})
}

// authenticate extracts and verifies the request credential: an
// Authorization bearer token, or the access_token cookie set by the auth
// collaborator.
func (h *Handler) authenticate(r *http.Request) (auth.Identity, bool) {
	token := ""
	if header := r.Header.Get("Authorization"); len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		token = header[7:]
	} else if c, err := r.Cookie("access_token"); err == nil {
		token = c.Value
	}
	if token == "" {
		return auth.Identity{}, false
	}

	id, err := h.verifier.Verify(token)
	if err != nil {
		return auth.Identity{}, false
	}
	return id, true
}
