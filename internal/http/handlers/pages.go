package handlers

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// pageData — данные шаблонов страниц.
type pageData struct {
	Title         string
	Next          string
	AccessCookie  string
	RefreshCookie string
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	data.AccessCookie = h.cookies.Access
	data.RefreshCookie = h.cookies.Refresh

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "page_render_failed",
			slog.String("page", name),
			slog.String("err", err.Error()),
		)
	}
}

// Index — GET /.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", pageData{Title: "Profile portal"})
}

// LoginPage — GET /login. next проходит SanitizeNext перед выводом в страницу.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := h.gate.SanitizeNext(r.URL.Query().Get(h.gate.NextParam()))
	h.render(w, r, "login.html", pageData{Title: "Sign in", Next: next})
}

// RegisterPage — GET /register.
func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	next := h.gate.SanitizeNext(r.URL.Query().Get(h.gate.NextParam()))
	h.render(w, r, "register.html", pageData{Title: "Create account", Next: next})
}

// Dashboard — GET /dashboard (защищена RouteGate).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "dashboard.html", pageData{Title: "Dashboard"})
}

// Profile — GET /profile (защищена RouteGate).
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "profile.html", pageData{Title: "Profile"})
}
