package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const maxRequestIDLen = 64

// RequestID берёт X-Request-Id от клиента (portalctl его проставляет) или
// выдаёт новый. Чужой id принимается, только если он короткий и состоит
// из [A-Za-z0-9._-]: он попадает в логи и в тело ошибки.
// Итоговый id виден в ответе, в заголовке запроса и в RequestIDFrom.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if !validRequestID(id) {
				id = genID()
				r.Header.Set("X-Request-Id", id)
			}

			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxRequestID, id)))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}

	return true
}

// genID — uuid без дефисов, 32 hex-символа.
func genID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
