package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-profile-portal/internal/models"
	"github.com/pribylovaa/go-profile-portal/internal/storage"
)

// SaveUser создает нового пользователя в БД.
// Нарушение уникальности (id, username, email) -> storage.ErrAlreadyExists.
func (s *Storage) SaveUser(ctx context.Context, user *models.User, secretHash string) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		secretHash,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var (
		user  models.User
		rawID string
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&rawID,
		&user.Username,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("%s: parse id: %w", op, err)
	}

	return &user, nil
}

// CredentialByEmail находит учётную запись по email (колонка CITEXT).
func (s *Storage) CredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	const op = "storage.postgres.CredentialByEmail"

	query := `
		SELECT id, password_hash
		FROM users
		WHERE email = $1
	`

	cred, err := s.credential(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cred, nil
}

// CredentialByUsername находит учётную запись по имени пользователя.
func (s *Storage) CredentialByUsername(ctx context.Context, username string) (*models.Credential, error) {
	const op = "storage.postgres.CredentialByUsername"

	query := `
		SELECT id, password_hash
		FROM users
		WHERE username = $1
	`

	cred, err := s.credential(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cred, nil
}

func (s *Storage) credential(ctx context.Context, query string, arg string) (*models.Credential, error) {
	var (
		cred  models.Credential
		rawID string
	)
	err := s.db.QueryRow(ctx, query, arg).Scan(&rawID, &cred.SecretHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	if cred.UserID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}

	return &cred, nil
}
