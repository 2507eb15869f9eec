// token выпускает и проверяет подписанные токены сессии.
//
// Классов токенов ровно два: access (короткий TTL) и refresh (длинный TTL).
// Каждый класс подписывается своим секретом, алгоритм фиксирован — HS256,
// и при проверке он сверяется явно. Полезная нагрузка закрыта: sub, kind,
// iat, exp (+ iss); токен с иной структурой отвергается.
//
// Отзыва токенов и общего идентификатора сессии нет: refresh-токен
// действителен до собственного exp.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen — минимальная длина секрета подписи в байтах.
const MinSecretLen = 32

var (
	// ErrInvalidToken — подпись/алгоритм/срок/структура не прошли проверку.
	// Транспорт не различает подпричины: HTTP 401 без деталей.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия истёк. Всегда оборачивается вместе
	// с ErrInvalidToken и нужен только для логов и тестов.
	ErrTokenExpired = errors.New("token expired")

	// ErrConfiguration — отсутствующий/слабый секрет или некорректные TTL.
	// Фатальна на старте, в обработке запросов не возникает.
	ErrConfiguration = errors.New("invalid token configuration")
)

// Kind — класс токена.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims — закрытая полезная нагрузка токена.
type Claims struct {
	Subject   uuid.UUID
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims — представление Claims в JWT.
type wireClaims struct {
	Kind Kind `json:"kind"`
	jwt.RegisteredClaims
}

// Config — параметры выпуска и проверки токенов.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Validate проверяет конфигурацию; все ошибки оборачивают ErrConfiguration.
func (c Config) Validate() error {
	const op = "token.Config.Validate"

	switch {
	case len(c.AccessSecret) < MinSecretLen:
		return fmt.Errorf("%s: access secret must be at least %d bytes: %w", op, MinSecretLen, ErrConfiguration)
	case len(c.RefreshSecret) < MinSecretLen:
		return fmt.Errorf("%s: refresh secret must be at least %d bytes: %w", op, MinSecretLen, ErrConfiguration)
	case string(c.AccessSecret) == string(c.RefreshSecret):
		return fmt.Errorf("%s: access and refresh secrets must differ: %w", op, ErrConfiguration)
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return fmt.Errorf("%s: token ttl must be positive: %w", op, ErrConfiguration)
	case c.AccessTTL >= c.RefreshTTL:
		return fmt.Errorf("%s: access ttl must be shorter than refresh ttl: %w", op, ErrConfiguration)
	}

	return nil
}

func (c Config) secret(k Kind) []byte {
	if k == KindRefresh {
		return c.RefreshSecret
	}

	return c.AccessSecret
}

func (c Config) ttl(k Kind) time.Duration {
	if k == KindRefresh {
		return c.RefreshTTL
	}

	return c.AccessTTL
}

// Option настраивает Issuer/Validator.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}
