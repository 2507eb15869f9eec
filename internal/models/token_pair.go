package models

import "time"

// TokenPair — пара токенов, выдаваемая при аутентификации/регистрации/обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для вызовов API;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
//
// Токены независимы друг от друга: общего идентификатора сессии нет.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult — результат успешного входа или регистрации.
type AuthResult struct {
	Tokens TokenPair
	User   User
}
