package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	"github.com/pribylovaa/go-profile-portal/internal/http/middleware"
	"github.com/pribylovaa/go-profile-portal/internal/models"
)

// Me — GET /api/me. Требует middleware.RequireBearer.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
		return
	}

	user, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserToResponse(*user))
}
