// cookies — единые правила cookie-материализации токенов.
// Используются сервером (очистка в RouteGate и logout) и клиентом
// (зеркалирование сессии в cookie jar).
package cookies

import (
	"net/http"
	"time"
)

// Options — имена и атрибуты cookie сессии.
// HttpOnly не выставляется: cookie читается клиентским кодом.
type Options struct {
	Access   string
	Refresh  string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// Default — access_token/refresh_token, Path=/, SameSite=Lax.
func Default() Options {
	return Options{
		Access:   "access_token",
		Refresh:  "refresh_token",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}

// Names возвращает имена обеих cookie.
func (o Options) Names() []string {
	return []string{o.Access, o.Refresh}
}

// New собирает cookie со временем жизни ttl.
// ttl меньше секунды даёт уже истёкшую cookie.
func (o Options) New(name, value string, ttl time.Duration, now time.Time) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if maxAge <= 0 {
		// MaxAge=0 означал бы session cookie без срока.
		maxAge = -1
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.path(),
		MaxAge:   maxAge,
		Expires:  now.Add(ttl).UTC(),
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// Expired собирает cookie, удаляющую name (Max-Age<0).
func (o Options) Expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.path(),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// Clear добавляет в ответ Set-Cookie, удаляющие обе cookie сессии.
func Clear(w http.ResponseWriter, o Options) {
	for _, name := range o.Names() {
		http.SetCookie(w, o.Expired(name))
	}
}

// AccessFrom читает access-cookie запроса; "" если её нет.
func AccessFrom(r *http.Request, o Options) string {
	c, err := r.Cookie(o.Access)
	if err != nil {
		return ""
	}

	return c.Value
}

func (o Options) path() string {
	if o.Path == "" {
		return "/"
	}

	return o.Path
}
