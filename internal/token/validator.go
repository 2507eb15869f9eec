package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Validator проверяет токены. Используется серверным bearer-мидлваром
// (полная проверка) и RouteGate (IsLikelyExpired, без проверки подписи).
type Validator struct {
	cfg Config
	now func() time.Time
}

// NewValidator проверяет конфигурацию и создаёт Validator.
func NewValidator(cfg Config, opts ...Option) (*Validator, error) {
	const op = "token.NewValidator"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := buildOptions(opts)
	return &Validator{cfg: cfg, now: o.now}, nil
}

// Verify проверяет токен секретом secret и возвращает его claims.
//
// Отвергаются:
//   - алгоритм, отличный от HS256 (в т.ч. "none" и HS384/HS512);
//   - неверная подпись;
//   - отсутствующий или наступивший exp по часам проверяющей стороны, без допуска;
//   - неполная/чужая структура claims.
//
// Любой отказ оборачивает ErrInvalidToken.
func (v *Validator) Verify(raw string, secret []byte) (*Claims, error) {
	const op = "token.Validator.Verify"

	if raw == "" || len(secret) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	}
	if v.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var wc wireClaims
	tok, err := jwt.NewParser(parserOpts...).ParseWithClaims(raw, &wc, func(t *jwt.Token) (any, error) {
		// WithValidMethods уже сверяет alg, но ключ отдаём только под HS256.
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !tok.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, err := wc.closed()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims, nil
}

// VerifyAccess проверяет access-токен секретом access и требует kind=access.
func (v *Validator) VerifyAccess(raw string) (*Claims, error) {
	return v.verifyKind(raw, KindAccess)
}

// VerifyRefresh проверяет refresh-токен секретом refresh и требует kind=refresh.
func (v *Validator) VerifyRefresh(raw string) (*Claims, error) {
	return v.verifyKind(raw, KindRefresh)
}

func (v *Validator) verifyKind(raw string, kind Kind) (*Claims, error) {
	const op = "token.Validator.verifyKind"

	claims, err := v.Verify(raw, v.cfg.secret(kind))
	if err != nil {
		return nil, err
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%s: want %s, got %s: %w", op, kind, claims.Kind, ErrInvalidToken)
	}

	return claims, nil
}

// IsLikelyExpired — рекомендательная проверка по часам Validator.
// См. пакетную IsLikelyExpired.
func (v *Validator) IsLikelyExpired(raw string) bool {
	return IsLikelyExpired(raw, v.now())
}

// ExpiresAt декодирует токен БЕЗ проверки подписи и возвращает его exp.
// ok=false, если токен не декодируется или exp отсутствует.
func ExpiresAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	var wc wireClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &wc); err != nil {
		return time.Time{}, false
	}

	if wc.ExpiresAt == nil {
		return time.Time{}, false
	}

	return wc.ExpiresAt.Time, true
}

// IsLikelyExpired декодирует токен без проверки подписи и смотрит только на exp.
// Нераспознаваемый токен считается истёкшим.
//
// Результат "не истёк" НЕ доказывает подлинность токена: функция служит
// только для быстрых решений маршрутизации/UI и никогда для авторизации.
func IsLikelyExpired(raw string, now time.Time) bool {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return true
	}

	return !now.Before(exp)
}

// closed приводит wireClaims к закрытой структуре Claims.
func (wc *wireClaims) closed() (*Claims, error) {
	if !wc.Kind.valid() || wc.IssuedAt == nil || wc.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	sub, err := uuid.Parse(wc.Subject)
	if err != nil || sub == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   sub,
		Kind:      wc.Kind,
		IssuedAt:  wc.IssuedAt.Time.UTC(),
		ExpiresAt: wc.ExpiresAt.Time.UTC(),
	}, nil
}
