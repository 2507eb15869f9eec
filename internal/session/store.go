// session — клиентское состояние сессии: пара токенов в долговременном KV
// и её материализация в cookie, которые читает RouteGate портала.
//
// Store безопасен для конкурентного использования. Согласованность между
// контекстами (несколько Store над одним KV) — eventual: изменения приходят
// событиями Watcher, а опрос раз в interval догоняет пропущенное.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/go-profile-portal/internal/http/cookies"
	"github.com/pribylovaa/go-profile-portal/internal/models"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
	"github.com/pribylovaa/go-profile-portal/internal/token"
)

const (
	// DefaultPollInterval — период опроса в Observe.
	DefaultPollInterval = 450 * time.Millisecond
	// FallbackAccessTTL — срок access-cookie, если exp не удалось прочитать.
	FallbackAccessTTL = time.Hour
	// RefreshCookieTTL — срок refresh-cookie.
	RefreshCookieTTL = 30 * 24 * time.Hour
)

// ErrEmptyToken — Set получил пару с пустым токеном.
var ErrEmptyToken = errors.New("empty token")

// State — наблюдаемое состояние сессии.
type State struct {
	AccessToken string
	Present     bool
}

// Authenticated — токен есть и по exp ещё не истёк (проверка без подписи).
func (s State) Authenticated(now time.Time) bool {
	return s.Present && !token.IsLikelyExpired(s.AccessToken, now)
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCookieOptions задаёт имена и атрибуты cookie.
func WithCookieOptions(o cookies.Options) Option {
	return func(s *Store) { s.opts = o }
}

// Store — состояние сессии поверх KV и CookieSurface.
// Ключи KV совпадают с именами cookie.
type Store struct {
	kv      KV
	surface CookieSurface
	opts    cookies.Options
	now     func() time.Time

	// mu упорядочивает Set/Clear, чтобы KV и cookie не разошлись.
	mu sync.Mutex
}

// NewStore создаёт Store. surface может быть nil: тогда сессия живёт только в KV.
func NewStore(kv KV, surface CookieSurface, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		surface: surface,
		opts:    cookies.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CookieOptions — имена и атрибуты cookie сессии.
func (s *Store) CookieOptions() cookies.Options { return s.opts }

// Set записывает пару в KV и зеркалирует её в cookie.
// Срок access-cookie = exp - now по claims токена (без проверки подписи),
// при неудаче декодирования FallbackAccessTTL. Refresh-cookie живёт RefreshCookieTTL.
func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	const op = "session.Store.Set"

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.SetMany(ctx, map[string]string{
		s.opts.Access:  pair.AccessToken,
		s.opts.Refresh: pair.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.materialize(pair.AccessToken, pair.RefreshToken)

	return nil
}

// Clear удаляет токены из KV и просрочивает обе cookie.
// Повторный вызов без сессии не ошибка.
func (s *Store) Clear(ctx context.Context) error {
	const op = "session.Store.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.opts.Names()...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.expireCookies()

	return nil
}

// CurrentAccessToken возвращает access-токен из KV.
func (s *Store) CurrentAccessToken(ctx context.Context) (string, bool, error) {
	const op = "session.Store.CurrentAccessToken"

	v, ok, err := s.kv.Get(ctx, s.opts.Access)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, ok && v != "", nil
}

// CurrentRefreshToken возвращает refresh-токен из KV.
func (s *Store) CurrentRefreshToken(ctx context.Context) (string, bool, error) {
	const op = "session.Store.CurrentRefreshToken"

	v, ok, err := s.kv.Get(ctx, s.opts.Refresh)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, ok && v != "", nil
}

// Sync приводит cookie в соответствие с KV: при наличии обоих токенов
// они материализуются заново, иначе cookie просрочиваются.
// Нужен процессу, который поднимает сессию из уже заполненного KV.
func (s *Store) Sync(ctx context.Context) error {
	const op = "session.Store.Sync"

	s.mu.Lock()
	defer s.mu.Unlock()

	access, okA, err := s.kv.Get(ctx, s.opts.Access)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	refresh, okR, err := s.kv.Get(ctx, s.opts.Refresh)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if okA && okR && access != "" && refresh != "" {
		s.materialize(access, refresh)
		return nil
	}

	s.expireCookies()

	return nil
}

// Observe вызывает fn синхронно с текущим состоянием, затем при событиях KV
// (если KV реализует Watcher) и на каждом тике опроса. После первого вызова
// fn вызывается только когда состояние изменилось.
// interval <= 0 означает DefaultPollInterval. Возвращаемая функция
// останавливает подписку и опрос; повторные вызовы безопасны.
func (s *Store) Observe(ctx context.Context, fn func(State), interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(ctx)

	last, err := s.state(ctx)
	if err != nil {
		logctx.From(ctx).Warn("session_observe_read_failed", "err", err)
	}
	fn(last)

	var events <-chan string
	if w, ok := s.kv.(Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			logctx.From(ctx).Warn("session_watch_failed", "err", err)
		} else {
			events = ch
		}
	}

	var stopped atomic.Bool

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					// Подписка закрыта, остаётся только опрос.
					events = nil
					continue
				}
			case <-ticker.C:
			}

			cur, err := s.state(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logctx.From(ctx).Warn("session_observe_read_failed", "err", err)
				}
				continue
			}

			if cur == last || stopped.Load() {
				continue
			}
			last = cur
			fn(cur)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
		})
	}
}

func (s *Store) state(ctx context.Context) (State, error) {
	v, ok, err := s.CurrentAccessToken(ctx)
	if err != nil {
		return State{}, err
	}

	return State{AccessToken: v, Present: ok}, nil
}

// materialize вызывается под s.mu.
func (s *Store) materialize(access, refresh string) {
	if s.surface == nil {
		return
	}

	now := s.now()

	accessTTL := FallbackAccessTTL
	if exp, ok := token.ExpiresAt(access); ok {
		accessTTL = exp.Sub(now)
	}

	s.surface.SetCookies([]*http.Cookie{
		s.opts.New(s.opts.Access, access, accessTTL, now),
		s.opts.New(s.opts.Refresh, refresh, RefreshCookieTTL, now),
	})
}

// expireCookies вызывается под s.mu.
func (s *Store) expireCookies() {
	if s.surface == nil {
		return
	}

	expired := make([]*http.Cookie, 0, 2)
	for _, name := range s.opts.Names() {
		expired = append(expired, s.opts.Expired(name))
	}

	s.surface.SetCookies(expired)
}
