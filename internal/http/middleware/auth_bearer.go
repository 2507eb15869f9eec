package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
)

// AccessVerifier — полная проверка access-токена (подпись, алгоритм, exp, kind).
type AccessVerifier func(raw string) (uuid.UUID, error)

// RequireBearer извлекает Bearer-токен из Authorization, полностью проверяет
// его и кладёт идентификатор пользователя в контекст (UserIDFrom).
// Отсутствующий или неверный токен -> 401 unauthenticated без деталей.
func RequireBearer(verify AccessVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			id, err := verify(raw)
			if err != nil {
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "bearer_rejected",
					slog.String("path", r.URL.Path),
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
