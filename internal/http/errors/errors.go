// errors стандартизирует ответы об ошибках HTTP-слоя портала.
// На вход принимает доменную ошибку (service/token/context), на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный код и безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-profile-portal/internal/service"
	"github.com/pribylovaa/go-profile-portal/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidArgument — тело запроса не разобрано. HTTP 400.
	ErrInvalidArgument = stderrors.New("invalid argument")
	// ErrUnauthenticated — нет или неверный bearer-токен. HTTP 401.
	ErrUnauthenticated = stderrors.New("unauthenticated")
	// ErrNotFound — маршрут не существует. HTTP 404.
	ErrNotFound = stderrors.New("not found")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и ответ.
//
// Таблица:
//   - service.ErrInvalidCredentials -> 401 invalid_credentials
//   - token.ErrInvalidToken, ErrUnauthenticated -> 401 unauthenticated
//   - ошибки валидации регистрации, ErrInvalidArgument -> 400 invalid_argument
//   - service.ErrAlreadyRegistered -> 409 already_exists
//   - service.ErrUserNotFound, ErrNotFound -> 404 not_found
//   - context.Canceled -> 499, context.DeadlineExceeded -> 504
//   - err == nil и прочее -> 500 internal
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

func classify(err error) (int, string, string) {
	switch {
	case err == nil:
		// Программная ошибка вызова: не отдаём "200 OK" с телом ошибки.
		return http.StatusInternalServerError, "internal", "internal error"
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid credentials"
	case stderrors.Is(err, token.ErrInvalidToken), stderrors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case stderrors.Is(err, service.ErrInvalidEmail),
		stderrors.Is(err, service.ErrInvalidUsername),
		stderrors.Is(err, service.ErrWeakPassword),
		stderrors.Is(err, service.ErrEmptyPassword),
		stderrors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case stderrors.Is(err, service.ErrAlreadyRegistered):
		return http.StatusConflict, "already_exists", "already exists"
	case stderrors.Is(err, service.ErrUserNotFound), stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
