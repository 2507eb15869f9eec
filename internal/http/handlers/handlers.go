package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-profile-portal/internal/gate"
	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	"github.com/pribylovaa/go-profile-portal/internal/metrics"
	"github.com/pribylovaa/go-profile-portal/internal/models"
)

// AuthService — сценарии, которые вызывают HTTP-хендлеры.
type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*models.AuthResult, error)
	Register(ctx context.Context, username, email, password string) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc     AuthService
	cookies cookies.Options
	gate    *gate.Gate
	metrics *metrics.Metrics
	pages   *template.Template
}

func New(svc AuthService, g *gate.Gate, co cookies.Options, m *metrics.Metrics) *Handlers {
	return &Handlers{
		svc:     svc,
		cookies: co,
		gate:    g,
		metrics: m,
		pages:   pages,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
