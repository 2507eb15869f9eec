package middleware

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-profile-portal/internal/gate"
	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	"github.com/pribylovaa/go-profile-portal/internal/metrics"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
)

// Gate применяет решение RouteGate до обработчика страницы:
// очищает обе cookie сессии, если так решено, и делает 303 See Other
// при перенаправлении. Сама проверка токена рекомендательная:
// API повторно проверяет токен в RequireBearer.
func Gate(g *gate.Gate, opts cookies.Options, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Decide(gate.Request{
				Path:        r.URL.Path,
				RawQuery:    r.URL.RawQuery,
				AccessToken: cookies.AccessFrom(r, opts),
			})
			m.ObserveGate(d.Class.String(), d.Action.String(), d.ClearCookies)

			if d.ClearCookies {
				cookies.Clear(w, opts)
			}

			if d.Action == gate.Redirect {
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "gate_redirect",
					slog.String("path", r.URL.Path),
					slog.String("class", d.Class.String()),
					slog.String("location", d.Location),
					slog.Bool("cleared", d.ClearCookies),
				)
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
