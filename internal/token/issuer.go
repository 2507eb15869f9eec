package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-profile-portal/internal/models"
)

// Issuer выпускает пары access+refresh токенов.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer проверяет конфигурацию и создаёт Issuer.
// Ошибка всегда оборачивает ErrConfiguration и должна останавливать старт.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	const op = "token.NewIssuer"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := buildOptions(opts)
	return &Issuer{cfg: cfg, now: o.now}, nil
}

// Issue выпускает новую пару токенов для identity.
// Побочных эффектов нет: сохранение пары — задача вызывающего.
func (i *Issuer) Issue(identity uuid.UUID) (*models.TokenPair, error) {
	const op = "token.Issuer.Issue"

	if identity == uuid.Nil {
		return nil, fmt.Errorf("%s: empty identity", op)
	}

	// NumericDate хранит секунды, поэтому iat/exp считаем от усечённого времени,
	// чтобы exp = iat + ttl выполнялось точно.
	now := i.now().UTC().Truncate(time.Second)

	access, accessExp, err := i.sign(identity, KindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := i.sign(identity, KindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) sign(identity uuid.UUID, kind Kind, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.cfg.ttl(kind))

	claims := wireClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.String(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, exp, nil
}
