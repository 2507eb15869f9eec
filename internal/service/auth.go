package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/pribylovaa/go-profile-portal/internal/models"
	logctx "github.com/pribylovaa/go-profile-portal/internal/pkg/log"
	"github.com/pribylovaa/go-profile-portal/internal/pkg/redact"
	"github.com/pribylovaa/go-profile-portal/internal/storage"
)

// maxPasswordBytes — bcrypt учитывает только первые 72 байта.
const maxPasswordBytes = 72

// Login выполняет вход по identifier (username или email) и паролю.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.AuthResult, error) {
	const op = "service.auth.Login"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	ok, id, err := s.verifier.Verify(ctx, identifier, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		logctx.From(ctx).LogAttrs(ctx, slog.LevelInfo, "login_failed",
			slog.String("identifier", redact.Identifier(identifier)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		// Запись удалили между проверкой и чтением.
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).LogAttrs(ctx, slog.LevelInfo, "login_succeeded",
		slog.String("user_id", user.ID.String()),
	)

	return s.issue(user)
}

// Register регистрирует нового пользователя и сразу выдаёт пару токенов.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	const op = "service.auth.Register"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	normName, err := validateUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.New(),
		Username:  normName,
		Email:     normEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveUser(ctx, user, hash); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			logctx.From(ctx).LogAttrs(ctx, slog.LevelInfo, "register_conflict",
				slog.String("email", redact.Email(normEmail)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyRegistered)
		}

		span.RecordError(err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.issue(user)
}

// Refresh проверяет refresh-токен и выдаёт новую пару.
// Старый refresh-токен не отзывается и остаётся действительным до своего exp.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	const op = "service.auth.Refresh"

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	claims, err := s.validator.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.issue(user)
}

// ValidateAccess полностью проверяет access-токен и возвращает идентификатор.
func (s *Service) ValidateAccess(accessToken string) (uuid.UUID, error) {
	const op = "service.auth.ValidateAccess"

	claims, err := s.validator.VerifyAccess(accessToken)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return claims.Subject, nil
}

// Profile возвращает сводку пользователя по идентификатору.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.auth.Profile"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) issue(user *models.User) (*models.AuthResult, error) {
	const op = "service.auth.issue"

	pair, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AuthResult{Tokens: *pair, User: *user}, nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validateUsername: 3..32 символа, буквы/цифры и "._-"; "@" запрещён,
// чтобы username не путался с email при входе.
func validateUsername(raw string) (string, error) {
	const op = "service.auth.validateUsername"

	name := strings.TrimSpace(raw)
	n := len([]rune(name))
	if n < 3 || n > 32 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			continue
		}

		return "", fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	return name, nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика: длина >= 8 символов и <= 72 байт, хотя бы одна строчная,
// заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 || len(pw) > maxPasswordBytes {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
