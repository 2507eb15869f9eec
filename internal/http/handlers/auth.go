package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	"github.com/pribylovaa/go-profile-portal/internal/metrics"
	"github.com/pribylovaa/go-profile-portal/internal/models"
	"github.com/pribylovaa/go-profile-portal/internal/service"
)

// Login — POST /api/auth/login. Любой отказ, включая битое тело,
// отдаётся как 401 invalid_credentials.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.AuthLoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		h.metrics.ObserveLogin(metrics.LoginFailed)
		apierrors.WriteError(w, r, service.ErrInvalidCredentials)
		return
	}

	res, err := h.svc.Login(r.Context(), in.Identifier, in.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.metrics.ObserveLogin(metrics.LoginFailed)
		} else {
			h.metrics.ObserveLogin(metrics.LoginError)
		}

		apierrors.WriteError(w, r, err)
		return
	}

	h.metrics.ObserveLogin(metrics.LoginSuccess)
	writeJSON(w, http.StatusOK, models.AuthToResponse(*res))
}

// Register — POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.AuthRegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	res, err := h.svc.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthToResponse(*res))
}

// Refresh — POST /api/auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in models.AuthRefreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	res, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthToResponse(*res))
}

// Logout — POST /api/auth/logout. Серверного состояния нет: ответ только
// истекает обе cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookies.Clear(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}
