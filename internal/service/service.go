// service содержит бизнес-логику портала: вход, регистрацию, обновление
// пары токенов и чтение сводки пользователя.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасном хранилище.
//   - Ошибки возвращаются как значения и далее маппятся транспортом
//     на HTTP-статусы (см. internal/http/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/go-profile-portal/internal/credentials"
	"github.com/pribylovaa/go-profile-portal/internal/storage"
	"github.com/pribylovaa/go-profile-portal/internal/token"
)

const tracerName = "github.com/pribylovaa/go-profile-portal/internal/service"

var (
	// ErrInvalidCredentials — пользователь не найден, пароль неверен или вход некорректен.
	// HTTP 401 invalid_credentials, без различения причин.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен не прошёл проверку. HTTP 401 unauthenticated.
	ErrInvalidToken = token.ErrInvalidToken

	// ErrAlreadyRegistered — username или email уже заняты. HTTP 409.
	ErrAlreadyRegistered = errors.New("username or email already registered")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — имя пользователя не проходит политику. HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrUserNotFound — пользователь по идентификатору не найден. HTTP 404.
	ErrUserNotFound = errors.New("user not found")
)

// Service описывает бизнес-логику портала.
type Service struct {
	storage   storage.Storage
	verifier  *credentials.Verifier
	issuer    *token.Issuer
	validator *token.Validator
	hasher    credentials.Hasher
	now       func() time.Time
}

// New создаёт новый экземпляр Service.
func New(
	st storage.Storage,
	verifier *credentials.Verifier,
	issuer *token.Issuer,
	validator *token.Validator,
	hasher credentials.Hasher,
) *Service {
	if hasher == nil {
		hasher = credentials.BcryptHasher{}
	}

	return &Service{
		storage:   st,
		verifier:  verifier,
		issuer:    issuer,
		validator: validator,
		hasher:    hasher,
		now:       time.Now,
	}
}
