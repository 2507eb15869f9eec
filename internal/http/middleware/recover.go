package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
)

var errPanic = errors.New("internal")

// Recover превращает панику обработчика в 500. Для /api ответ идёт
// в JSON-конверте, для страниц портала это простой текст без деталей.
// http.ErrAbortHandler пробрасывается дальше.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "handler_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.Any("reason", rec),
				)

				if isAPI(r) {
					apierrors.WriteError(w, r, errPanic)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func isAPI(r *http.Request) bool {
	return r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/")
}
