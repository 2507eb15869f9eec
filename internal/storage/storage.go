package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-profile-portal/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (id/username/email).
	ErrAlreadyExists = errors.New("already exists")
)

// CredentialStore — поиск учётных записей для проверки пароля.
// Возвращает storage.ErrNotFound, если записи нет.
type CredentialStore interface {
	// CredentialByEmail находит учётную запись по email (регистронезависимо).
	CredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	// CredentialByUsername находит учётную запись по имени пользователя.
	CredentialByUsername(ctx context.Context, username string) (*models.Credential, error)
}

// UserStore выполняет операции над пользователями.
type UserStore interface {
	// SaveUser создает нового пользователя вместе с хэшем пароля.
	SaveUser(ctx context.Context, user *models.User, secretHash string) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	CredentialStore
	UserStore
	Ping(ctx context.Context) error
	Close()
}
