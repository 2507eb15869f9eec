// models содержит доменные сущности портала.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — сводка о пользователе, которую можно отдавать наружу.
// Хэш пароля сюда намеренно не входит, см. Credential.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential — учётная запись для проверки пароля.
// SecretHash не покидает пакет credentials: наружу возвращается только
// результат сравнения и идентификатор.
type Credential struct {
	UserID     uuid.UUID
	SecretHash string
}
