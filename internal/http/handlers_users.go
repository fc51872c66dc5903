package httpx

import (
	"log/slog"
	"net/http"

	"github.com/theervu-kaanal/grievance-api/internal/service"
)

// UserHandlers serves the user profile endpoints behind the
// provider-auth middleware.
type UserHandlers struct {
	Svc    *service.AuthService
	Logger *slog.Logger
}

// Profile handles GET /api/users/profile. The principal comes from the
// middleware; the record is re-read from its role store so edits made
// elsewhere show up.
func (h *UserHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.Svc.Profile(r.Context(), principal)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "profile lookup failed", "error", err)
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}
