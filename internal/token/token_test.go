package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Файл unit-тестов выпуска и проверки токенов.
// Время подменяется через WithClock, чтобы проверять истечение без sleep.

var (
	accessSecret  = []byte("access-secret-0123456789abcdef-0123")
	refreshSecret = []byte("refresh-secret-0123456789abcdef-012")
)

func testCfg() Config {
	return Config{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     10 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "profile-portal",
	}
}

// fakeClock — управляемые часы.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newPair(t *testing.T) (*Issuer, *Validator, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss, err := NewIssuer(testCfg(), WithClock(clock.Now))
	require.NoError(t, err)
	val, err := NewValidator(testCfg(), WithClock(clock.Now))
	require.NoError(t, err)

	return iss, val, clock
}

// signRaw — подписывает произвольные claims заданным методом (для атак подмены).
func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "short_access_secret", mutate: func(c *Config) { c.AccessSecret = []byte("short") }},
		{name: "missing_refresh_secret", mutate: func(c *Config) { c.RefreshSecret = nil }},
		{name: "same_secrets", mutate: func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{name: "zero_access_ttl", mutate: func(c *Config) { c.AccessTTL = 0 }},
		{name: "access_ttl_not_shorter", mutate: func(c *Config) { c.AccessTTL = c.RefreshTTL }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testCfg()
			tt.mutate(&cfg)

			_, err := NewIssuer(cfg)
			require.ErrorIs(t, err, ErrConfiguration)

			_, err = NewValidator(cfg)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	require.NoError(t, testCfg().Validate())
}

// TestIssue_RoundTrip — issue -> VerifyAccess даёт subject == identity и kind == access,
// а exp = iat + ttl для обоих классов.
func TestIssue_RoundTrip(t *testing.T) {
	t.Parallel()

	iss, val, clock := newPair(t)
	id := uuid.New()

	pair, err := iss.Issue(id)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Len(t, strings.Split(pair.AccessToken, "."), 3)

	ac, err := val.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, id, ac.Subject)
	require.Equal(t, KindAccess, ac.Kind)
	require.True(t, clock.Now().Equal(ac.IssuedAt))
	require.True(t, ac.IssuedAt.Add(10*time.Minute).Equal(ac.ExpiresAt))
	require.True(t, ac.ExpiresAt.Equal(pair.AccessExpiresAt))

	rc, err := val.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, id, rc.Subject)
	require.Equal(t, KindRefresh, rc.Kind)
	require.True(t, rc.IssuedAt.Add(7*24*time.Hour).Equal(rc.ExpiresAt))
	require.True(t, rc.ExpiresAt.Equal(pair.RefreshExpiresAt))
}

func TestIssue_NilIdentity(t *testing.T) {
	t.Parallel()

	iss, _, _ := newPair(t)
	_, err := iss.Issue(uuid.Nil)
	require.Error(t, err)
}

// TestVerify_FailsAfterExpiry — сразу после выпуска токен валиден,
// после сдвига часов за TTL — нет; допуска на рассинхронизацию нет.
func TestVerify_FailsAfterExpiry(t *testing.T) {
	t.Parallel()

	iss, val, clock := newPair(t)
	pair, err := iss.Issue(uuid.New())
	require.NoError(t, err)

	_, err = val.Verify(pair.AccessToken, accessSecret)
	require.NoError(t, err)

	clock.Advance(10*time.Minute - time.Second)
	_, err = val.Verify(pair.AccessToken, accessSecret)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = val.Verify(pair.AccessToken, accessSecret)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, ErrTokenExpired)

	// refresh живёт дольше.
	_, err = val.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

// TestVerify_WrongSecret — токен, подписанный секретом A, не проходит с секретом B != A.
func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	iss, val, _ := newPair(t)
	pair, err := iss.Issue(uuid.New())
	require.NoError(t, err)

	for _, secret := range [][]byte{
		refreshSecret,
		[]byte("another-secret-0123456789abcdef-xy"),
		[]byte("access-secret-0123456789abcdef-012X"),
	} {
		_, err := val.Verify(pair.AccessToken, secret)
		require.ErrorIs(t, err, ErrInvalidToken)
	}

	_, err = val.Verify(pair.AccessToken, nil)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// TestVerify_KindMismatch — refresh не принимается как access и наоборот,
// даже если подписать его секретом access.
func TestVerify_KindMismatch(t *testing.T) {
	t.Parallel()

	iss, val, clock := newPair(t)
	pair, err := iss.Issue(uuid.New())
	require.NoError(t, err)

	_, err = val.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = val.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	forged := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"kind": "refresh",
		"iss":  "profile-portal",
		"iat":  clock.Now().Unix(),
		"exp":  clock.Now().Add(time.Hour).Unix(),
	}, accessSecret)
	_, err = val.VerifyAccess(forged)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// TestVerify_AlgorithmSubstitution — HS384/HS512 и "none" отвергаются,
// даже при корректном секрете и claims.
func TestVerify_AlgorithmSubstitution(t *testing.T) {
	t.Parallel()

	_, val, clock := newPair(t)
	claims := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"kind": "access",
		"iss":  "profile-portal",
		"iat":  clock.Now().Unix(),
		"exp":  clock.Now().Add(time.Minute).Unix(),
	}

	t.Run("hs512", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS512, claims, accessSecret)
		_, err := val.VerifyAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("hs384", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodHS384, claims, accessSecret)
		_, err := val.VerifyAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none", func(t *testing.T) {
		raw := signRaw(t, jwt.SigningMethodNone, claims, jwt.UnsafeAllowNoneSignatureType)
		_, err := val.VerifyAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

// TestVerify_ClosedClaims — токены с неполной/чужой структурой отвергаются.
func TestVerify_ClosedClaims(t *testing.T) {
	t.Parallel()

	_, val, clock := newPair(t)
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  uuid.NewString(),
			"kind": "access",
			"iss":  "profile-portal",
			"iat":  clock.Now().Unix(),
			"exp":  clock.Now().Add(time.Minute).Unix(),
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{name: "no_sub", mutate: func(c jwt.MapClaims) { delete(c, "sub") }},
		{name: "sub_not_uuid", mutate: func(c jwt.MapClaims) { c["sub"] = "alice" }},
		{name: "unknown_kind", mutate: func(c jwt.MapClaims) { c["kind"] = "admin" }},
		{name: "no_kind", mutate: func(c jwt.MapClaims) { delete(c, "kind") }},
		{name: "no_exp", mutate: func(c jwt.MapClaims) { delete(c, "exp") }},
		{name: "no_iat", mutate: func(c jwt.MapClaims) { delete(c, "iat") }},
		{name: "wrong_issuer", mutate: func(c jwt.MapClaims) { c["iss"] = "someone-else" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			_, err := val.Verify(signRaw(t, jwt.SigningMethodHS256, c, accessSecret), accessSecret)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	_, val, _ := newPair(t)
	for _, raw := range []string{"", "abc", "a.b.c", "x.y", strings.Repeat(".", 3)} {
		_, err := val.Verify(raw, accessSecret)
		require.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

// TestIsLikelyExpired — рекомендательная проверка смотрит только на exp
// и не проверяет подпись.
func TestIsLikelyExpired(t *testing.T) {
	t.Parallel()

	iss, val, clock := newPair(t)
	pair, err := iss.Issue(uuid.New())
	require.NoError(t, err)

	require.False(t, val.IsLikelyExpired(pair.AccessToken))

	// Подпись не проверяется: токен с чужим секретом всё равно "не истёк".
	foreign := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": clock.Now().Add(time.Minute).Unix(),
	}, []byte("whatever"))
	require.False(t, val.IsLikelyExpired(foreign))

	clock.Advance(10 * time.Minute)
	require.True(t, val.IsLikelyExpired(pair.AccessToken))
	require.False(t, val.IsLikelyExpired(pair.RefreshToken))

	// Нераспознаваемое и без exp — считается истёкшим.
	require.True(t, val.IsLikelyExpired(""))
	require.True(t, val.IsLikelyExpired("garbage"))
	noExp := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}, accessSecret)
	require.True(t, val.IsLikelyExpired(noExp))
}

func TestExpiresAt(t *testing.T) {
	t.Parallel()

	iss, _, _ := newPair(t)
	pair, err := iss.Issue(uuid.New())
	require.NoError(t, err)

	exp, ok := ExpiresAt(pair.AccessToken)
	require.True(t, ok)
	require.Equal(t, pair.AccessExpiresAt.Unix(), exp.Unix())

	_, ok = ExpiresAt("not-a-token")
	require.False(t, ok)
}
