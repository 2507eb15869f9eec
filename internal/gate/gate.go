// gate — решение о навигации до рендеринга страницы.
//
// Решение зависит только от класса пути, рекомендательной проверки
// access-cookie (IsLikelyExpired) и наличия параметра next. Пакет ничего
// не пишет в ответ: HTTP-адаптер живёт в internal/http/middleware.
package gate

import (
	"net/url"
	"strings"
)

// Class — класс пути.
type Class int

const (
	Public Class = iota
	Protected
	AuthPage
)

func (c Class) String() string {
	switch c {
	case Protected:
		return "protected"
	case AuthPage:
		return "auth_page"
	default:
		return "public"
	}
}

// Action — итоговое действие.
type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}

	return "allow"
}

// Config — правила классификации.
type Config struct {
	// ProtectedPrefixes — путь защищён, если равен префиксу или продолжается "/".
	ProtectedPrefixes []string
	// AuthPages — страницы входа/регистрации (точное совпадение).
	AuthPages []string
	// LoginPath — куда отправлять неаутентифицированного пользователя.
	LoginPath string
	// LandingPath — куда отправлять уже вошедшего пользователя.
	LandingPath string
	// NextParam — имя параметра возврата.
	NextParam string
}

// DefaultConfig — /dashboard и /profile защищены, /login и /register — страницы входа.
func DefaultConfig() Config {
	return Config{
		ProtectedPrefixes: []string{"/dashboard", "/profile"},
		AuthPages:         []string{"/login", "/register"},
		LoginPath:         "/login",
		LandingPath:       "/dashboard",
		NextParam:         "next",
	}
}

// Request — входные данные одной навигации.
type Request struct {
	Path        string
	RawQuery    string
	AccessToken string
}

// Decision — результат Decide.
type Decision struct {
	Class        Class
	Action       Action
	Location     string
	ClearCookies bool
}

// Gate — чистая функция решения; безопасен для конкурентного использования.
type Gate struct {
	cfg       Config
	isExpired func(raw string) bool
}

// New создаёт Gate. isExpired — рекомендательная проверка токена
// (обычно token.Validator.IsLikelyExpired).
func New(cfg Config, isExpired func(raw string) bool) *Gate {
	def := DefaultConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = def.LandingPath
	}
	if cfg.NextParam == "" {
		cfg.NextParam = def.NextParam
	}

	return &Gate{cfg: cfg, isExpired: isExpired}
}

// Classify определяет класс пути.
func (g *Gate) Classify(path string) Class {
	for _, p := range g.cfg.AuthPages {
		if path == p || path == p+"/" {
			return AuthPage
		}
	}

	for _, p := range g.cfg.ProtectedPrefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return Protected
		}
	}

	return Public
}

// Decide применяет таблицу переходов:
//
//	Protected, токен невалиден       -> redirect login?next=..., очистить cookies
//	Protected, токен валиден         -> allow
//	AuthPage, есть next              -> allow, очистить cookies
//	AuthPage, нет next, токен валиден -> redirect landing
//	AuthPage, нет next, токен невалиден -> allow
//	Public                           -> allow
func (g *Gate) Decide(r Request) Decision {
	class := g.Classify(r.Path)

	switch class {
	case Protected:
		if g.valid(r.AccessToken) {
			return Decision{Class: class, Action: Allow}
		}

		return Decision{
			Class:        class,
			Action:       Redirect,
			Location:     g.loginLocation(r.Path, r.RawQuery),
			ClearCookies: true,
		}

	case AuthPage:
		if g.hasNext(r.RawQuery) {
			return Decision{Class: class, Action: Allow, ClearCookies: true}
		}

		if g.valid(r.AccessToken) {
			return Decision{Class: class, Action: Redirect, Location: g.cfg.LandingPath}
		}

		return Decision{Class: class, Action: Allow}
	}

	return Decision{Class: Public, Action: Allow}
}

// SanitizeNext возвращает next, если это абсолютный путь этого же сайта,
// иначе LandingPath.
func (g *Gate) SanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return g.cfg.LandingPath
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return g.cfg.LandingPath
	}

	return next
}

// NextParam — имя параметра возврата.
func (g *Gate) NextParam() string {
	return g.cfg.NextParam
}

func (g *Gate) valid(raw string) bool {
	return raw != "" && !g.isExpired(raw)
}

func (g *Gate) hasNext(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	// Ошибку разбора игнорируем: ParseQuery возвращает то, что успел разобрать.
	values, _ := url.ParseQuery(rawQuery)
	return values.Has(g.cfg.NextParam)
}

// loginLocation строит LoginPath?next=<path+query>. "/" в значении
// оставляется как есть: это допустимый символ query.
func (g *Gate) loginLocation(path, rawQuery string) string {
	target := path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	escaped := strings.ReplaceAll(url.QueryEscape(target), "%2F", "/")
	return g.cfg.LoginPath + "?" + url.QueryEscape(g.cfg.NextParam) + "=" + escaped
}
