package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// CookieSurface — место, где сессия материализуется в cookie.
type CookieSurface interface {
	SetCookies(cookies []*http.Cookie)
	Cookie(name string) (string, bool)
}

// JarCookies привязывает http.CookieJar к базовому URL портала.
type JarCookies struct {
	jar  http.CookieJar
	base *url.URL
}

// NewJarCookies создаёт surface над jar. nil jar заменяется новым cookiejar.
func NewJarCookies(jar http.CookieJar, baseURL string) (*JarCookies, error) {
	const op = "session.NewJarCookies"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &JarCookies{jar: jar, base: u}, nil
}

// Jar — нижележащий jar, его же использует http.Client.
func (j *JarCookies) Jar() http.CookieJar { return j.jar }

func (j *JarCookies) SetCookies(cookies []*http.Cookie) {
	j.jar.SetCookies(j.base, cookies)
}

func (j *JarCookies) Cookie(name string) (string, bool) {
	for _, c := range j.jar.Cookies(j.base) {
		if c.Name == name {
			return c.Value, true
		}
	}

	return "", false
}

var _ CookieSurface = (*JarCookies)(nil)
