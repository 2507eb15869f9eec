package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-profile-portal/internal/gate"
	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	"github.com/pribylovaa/go-profile-portal/internal/http/handlers"
	"github.com/pribylovaa/go-profile-portal/internal/http/middleware"
	"github.com/pribylovaa/go-profile-portal/internal/metrics"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Metrics *metrics.Metrics
	Cookies cookies.Options
	Gate    *gate.Gate
	// VerifyAccess — полная проверка access-токена для /api.
	VerifyAccess middleware.AccessVerifier
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
//
// RouteGate стоит только перед страницами; /api защищён RequireBearer,
// который повторно и полностью проверяет токен.
func NewRouter(svc handlers.AuthService, opts Options) http.Handler {
	if opts.Cookies.Access == "" {
		opts.Cookies = cookies.Default()
	}

	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Gate, opts.Cookies, opts.Metrics)

	root.Route("/api", func(r chi.Router) {
		registerAPIRoutes(r, h, opts)
	})

	gated := middleware.Gate(opts.Gate, opts.Cookies, opts.Metrics)

	root.Group(func(r chi.Router) {
		r.Use(gated)
		registerPageRoutes(r, h)
	})

	// Незарегистрированные страницы тоже проходят RouteGate:
	// /profile/settings без сессии уводит на вход, а не отдаёт 404.
	pageNotFound := gated(http.HandlerFunc(http.NotFound))
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			apierrors.WriteError(w, r, apierrors.ErrNotFound)
			return
		}
		pageNotFound.ServeHTTP(w, r)
	})

	return root
}

// registerAPIRoutes — JSON API.
func registerAPIRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)

	// users
	r.With(middleware.RequireBearer(opts.VerifyAccess)).Get("/me", h.Me)
}

// registerPageRoutes — HTML-страницы за RouteGate.
func registerPageRoutes(r chi.Router, h *handlers.Handlers) {
	r.Get("/", h.Index)
	r.Get("/login", h.LoginPage)
	r.Get("/register", h.RegisterPage)
	r.Get("/dashboard", h.Dashboard)
	r.Get("/dashboard/*", h.Dashboard)
	r.Get("/profile", h.Profile)
}
