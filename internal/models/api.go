// Входные/выходные модели REST API портала.
package models

type AuthRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"` // Unix UTC
}

type AuthResponse struct {
	AccessToken     string       `json:"access_token"`
	RefreshToken    string       `json:"refresh_token"`
	AccessExpiresAt int64        `json:"access_expires_at"` // Unix UTC
	User            UserResponse `json:"user"`
}

// UserToResponse конвертирует доменного пользователя в REST-модель.
func UserToResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Unix(),
	}
}

// AuthToResponse конвертирует результат входа/регистрации в REST-модель.
func AuthToResponse(res AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:     res.Tokens.AccessToken,
		RefreshToken:    res.Tokens.RefreshToken,
		AccessExpiresAt: res.Tokens.AccessExpiresAt.Unix(),
		User:            UserToResponse(res.User),
	}
}
