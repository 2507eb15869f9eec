// client — HTTP-клиент портала, который ведёт сессию через session.Store.
//
// Вход и регистрация сохраняют пару токенов в Store (KV + cookie jar),
// выход очищает её. Запросы к страницам идут через тот же jar, поэтому
// RouteGate портала видит ровно те cookie, которые материализовал Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/pribylovaa/go-profile-portal/internal/http/errors"
	"github.com/pribylovaa/go-profile-portal/internal/models"
	"github.com/pribylovaa/go-profile-portal/internal/session"
)

var (
	// ErrNoSession — операция требует сохранённой сессии, а её нет.
	ErrNoSession = errors.New("no session")
)

// APIError — ошибочный ответ API портала.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsUnauthenticated — ответ 401 (неверные учётные данные или токен).
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Config — параметры клиента.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
	// Transport — нижний RoundTripper; nil означает http.DefaultTransport.
	Transport http.RoundTripper
}

// Page — результат перехода на страницу без следования редиректам.
type Page struct {
	Status   int
	Location string
	Body     string
}

// Redirected — ответ 3xx.
func (p *Page) Redirected() bool {
	return p.Status >= 300 && p.Status < 400
}

// Client — клиент портала.
type Client struct {
	base  *url.URL
	http  *http.Client
	store *session.Store
	log   *slog.Logger
}

// New создаёт клиент. jar должен быть тем же surface, что передан в store:
// через него http.Client отправляет cookie страницам.
func New(cfg Config, store *session.Store, jar *session.JarCookies) (*Client, error) {
	const op = "client.New"

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, cfg.BaseURL)
	}
	if store == nil || jar == nil {
		return nil, fmt.Errorf("%s: store and jar are required", op)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	next := cfg.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	hc := &http.Client{
		Transport: &loggingTransport{next: next, log: log, userAgent: cfg.UserAgent},
		Jar:       jar.Jar(),
		Timeout:   cfg.Timeout,
		// Редиректы RouteGate отдаём вызывающему как есть.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Client{base: base, http: hc, store: store, log: log}, nil
}

// Store — сессия клиента.
func (c *Client) Store() *session.Store { return c.store }

// Login — POST /api/auth/login; при успехе пара токенов сохраняется в Store.
func (c *Client) Login(ctx context.Context, identifier, password string) (*models.UserResponse, error) {
	const op = "client.Login"

	in := models.AuthLoginRequest{Identifier: identifier, Password: password}

	res, err := c.authenticate(ctx, "/api/auth/login", in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Register — POST /api/auth/register; при успехе сессия сразу открыта.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.UserResponse, error) {
	const op = "client.Register"

	in := models.AuthRegisterRequest{Username: username, Email: email, Password: password}

	res, err := c.authenticate(ctx, "/api/auth/register", in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Refresh — обмен сохранённого refresh-токена на новую пару.
// Отказ сервера (401) очищает сессию.
func (c *Client) Refresh(ctx context.Context) error {
	const op = "client.Refresh"

	rt, ok, err := c.store.CurrentRefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNoSession)
	}

	_, err = c.authenticate(ctx, "/api/auth/refresh", models.AuthRefreshRequest{RefreshToken: rt})
	if err != nil {
		if IsUnauthenticated(err) {
			if clearErr := c.store.Clear(ctx); clearErr != nil {
				c.log.Warn("session_clear_failed", slog.String("err", clearErr.Error()))
			}
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Me — GET /api/me. При 401 один раз пробует Refresh и повторяет запрос.
func (c *Client) Me(ctx context.Context) (*models.UserResponse, error) {
	const op = "client.Me"

	user, err := c.me(ctx)
	if err == nil {
		return user, nil
	}
	if !IsUnauthenticated(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = c.me(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// Logout — POST /api/auth/logout и очистка Store.
// Сессия очищается, даже если сервер недоступен.
func (c *Client) Logout(ctx context.Context) error {
	const op = "client.Logout"

	resp, reqErr := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, "")
	if reqErr == nil {
		reqErr = drain(resp, http.StatusNoContent)
	}

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if reqErr != nil {
		return fmt.Errorf("%s: %w", op, reqErr)
	}

	return nil
}

// Navigate — GET страницы портала с cookie из jar, без следования редиректам.
// Если ответ стёр access-cookie, сессия в Store тоже очищается.
func (c *Client) Navigate(ctx context.Context, path string) (*Page, error) {
	const op = "client.Navigate"

	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page := &Page{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Body:     string(body),
	}

	if err := c.reconcile(ctx, resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

// Status — текущее состояние сессии и признак аутентифицированности.
func (c *Client) Status(ctx context.Context) (session.State, bool, error) {
	const op = "client.Status"

	tok, ok, err := c.store.CurrentAccessToken(ctx)
	if err != nil {
		return session.State{}, false, fmt.Errorf("%s: %w", op, err)
	}

	st := session.State{AccessToken: tok, Present: ok}
	return st, st.Authenticated(time.Now()), nil
}

// reconcile очищает Store, если ответ истёк access-cookie (RouteGate очищает
// cookie и при редиректе, и на странице входа с next), а в KV токен ещё есть.
func (c *Client) reconcile(ctx context.Context, resp *http.Response) error {
	if !expiresCookie(resp, c.store.CookieOptions().Access) {
		return nil
	}

	_, inKV, err := c.store.CurrentAccessToken(ctx)
	if err != nil || !inKV {
		return err
	}

	c.log.Info("session_cleared_by_gate", slog.Int("status", resp.StatusCode))
	return c.store.Clear(ctx)
}

// expiresCookie сообщает, истекает ли в ответе cookie с именем name.
func expiresCookie(resp *http.Response, name string) bool {
	for _, ck := range resp.Cookies() {
		if ck.Name != name {
			continue
		}
		if ck.MaxAge < 0 || (!ck.Expires.IsZero() && !ck.Expires.After(time.Now())) {
			return true
		}
	}

	return false
}

func (c *Client) me(ctx context.Context) (*models.UserResponse, error) {
	at, ok, err := c.store.CurrentAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSession
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/me", nil, at)
	if err != nil {
		return nil, err
	}

	var out models.UserResponse
	if err := decode(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// authenticate — общий путь login/register/refresh: запрос, разбор
// AuthResponse и сохранение пары в Store.
func (c *Client) authenticate(ctx context.Context, path string, in any) (*models.UserResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}

	var out models.AuthResponse
	if err := decode(resp, 0, &out); err != nil {
		return nil, err
	}

	pair := models.TokenPair{
		AccessToken:     out.AccessToken,
		RefreshToken:    out.RefreshToken,
		AccessExpiresAt: time.Unix(out.AccessExpiresAt, 0).UTC(),
	}
	if err := c.store.Set(ctx, pair); err != nil {
		return nil, err
	}

	return &out.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, bearer string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.http.Do(req)
}

// decode читает JSON-ответ. want=0 принимает любой 2xx.
func decode(resp *http.Response, want int, out any) error {
	defer resp.Body.Close()

	if err := statusError(resp, want); err != nil {
		return err
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// drain проверяет статус и дочитывает тело.
func drain(resp *http.Response, want int) error {
	defer resp.Body.Close()

	if err := statusError(resp, want); err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(resp *http.Response, want int) error {
	ok := resp.StatusCode == want
	if want == 0 {
		ok = resp.StatusCode >= 200 && resp.StatusCode < 300
	}
	if ok {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Code: "unexpected_status"}

	var er apierrors.ErrorResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") &&
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&er) == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}

	return apiErr
}
