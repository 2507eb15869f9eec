// credentials проверяет пару идентификатор+пароль.
//
// Время ответа не должно выдавать, существует ли учётная запись: на каждом
// пути выполняется ровно одно сравнение bcrypt. Если записи нет, сравнение
// идёт с эталонным хэшем той же стоимости, что и у хэшей в хранилище.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-profile-portal/internal/models"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
	"github.com/pribylovaa/go-profile-portal/internal/storage"
)

const tracerName = "github.com/pribylovaa/go-profile-portal/internal/credentials"

// Hasher — хэширование и сравнение паролей.
type Hasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) bool
}

// CostHasher — Hasher, хэши которого несут свою стоимость.
// Verifier подстраивает под неё эталонный хэш.
type CostHasher interface {
	Hasher
	HashCost(secret string, cost int) (string, error)
	CostOf(hash string) (int, bool)
}

// BcryptHasher — Hasher на bcrypt. Cost=0 означает bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash хэширует пароль с помощью bcrypt.
func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return h.HashCost(secret, cost)
}

// HashCost хэширует пароль с явной стоимостью.
func (h BcryptHasher) HashCost(secret string, cost int) (string, error) {
	const op = "credentials.BcryptHasher.HashCost"

	b, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Compare сравнивает пароль с хэшем.
func (h BcryptHasher) Compare(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// CostOf возвращает стоимость, с которой посчитан hash.
func (h BcryptHasher) CostOf(hash string) (int, bool) {
	cost, err := bcrypt.Cost([]byte(hash))
	return cost, err == nil
}

type reference struct {
	hash string
	cost int
}

// Verifier проверяет учётные данные по хранилищу.
// Безопасен для конкурентного использования.
//
// Эталонный хэш следует за стоимостью последнего найденного в хранилище
// хэша: после смены auth.bcrypt_cost старые и новые записи сравниваются
// за разное время, и "нет записи" должно совпадать с теми, что реально
// лежат в базе.
type Verifier struct {
	store  storage.CredentialStore
	hasher Hasher

	ref atomic.Pointer[reference]

	mu   sync.Mutex
	refs map[int]string
}

// NewVerifier создаёт Verifier и считает эталонный хэш случайного пароля.
func NewVerifier(store storage.CredentialStore, hasher Hasher) (*Verifier, error) {
	const op = "credentials.NewVerifier"

	if hasher == nil {
		hasher = BcryptHasher{}
	}

	hash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("%s: reference hash: %w", op, err)
	}

	v := &Verifier{store: store, hasher: hasher, refs: make(map[int]string)}

	ref := &reference{hash: hash}
	if ch, ok := hasher.(CostHasher); ok {
		if cost, ok := ch.CostOf(hash); ok {
			ref.cost = cost
			v.refs[cost] = hash
		}
	}
	v.ref.Store(ref)

	return v, nil
}

// Verify проверяет identifier+secret.
//
// Идентификатор с "@" считается email: обрезается и приводится к нижнему
// регистру; иначе это имя пользователя (только обрезка пробелов).
// Отсутствие записи и неверный пароль дают matched=false без ошибки;
// ошибка возвращается только при сбое хранилища.
func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (bool, uuid.UUID, error) {
	const op = "credentials.Verifier.Verify"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	ident, isEmail := normalize(identifier)
	span.SetAttributes(attribute.Bool("identifier.email", isEmail))

	if ident == "" || secret == "" {
		v.hasher.Compare(v.ref.Load().hash, secret)
		return false, uuid.Nil, nil
	}

	var (
		cred *models.Credential
		err  error
	)
	if isEmail {
		cred, err = v.store.CredentialByEmail(ctx, ident)
	} else {
		cred, err = v.store.CredentialByUsername(ctx, ident)
	}

	if err != nil {
		v.hasher.Compare(v.ref.Load().hash, secret)

		if errors.Is(err, storage.ErrNotFound) {
			return false, uuid.Nil, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "credential lookup failed")
		return false, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if cred == nil || cred.SecretHash == "" {
		v.hasher.Compare(v.ref.Load().hash, secret)
		return false, uuid.Nil, nil
	}

	matched := v.hasher.Compare(cred.SecretHash, secret)
	v.follow(ctx, cred.SecretHash)

	if !matched {
		return false, uuid.Nil, nil
	}

	return true, cred.UserID, nil
}

// follow переводит эталонный хэш на стоимость stored, если она другая.
// Хэши по стоимостям кэшируются, поэтому смешанная база пересчитывает
// каждый не больше одного раза.
func (v *Verifier) follow(ctx context.Context, stored string) {
	ch, ok := v.hasher.(CostHasher)
	if !ok {
		return
	}

	cost, ok := ch.CostOf(stored)
	if !ok || cost == v.ref.Load().cost {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	hash, cached := v.refs[cost]
	if !cached {
		var err error
		hash, err = ch.HashCost(uuid.NewString(), cost)
		if err != nil {
			logctx.From(ctx).LogAttrs(ctx, slog.LevelWarn, "reference_hash_failed",
				slog.Int("cost", cost),
				slog.String("err", err.Error()),
			)
			return
		}
		v.refs[cost] = hash
	}

	v.ref.Store(&reference{hash: hash, cost: cost})
}

// normalize обрезает пробелы; email дополнительно приводится к нижнему регистру.
func normalize(identifier string) (string, bool) {
	ident := strings.TrimSpace(identifier)
	if strings.Contains(ident, "@") {
		return strings.ToLower(ident), true
	}

	return ident, false
}
