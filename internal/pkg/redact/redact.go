// redact маскирует чувствительные данные перед записью в логи: идентификаторы
// входа (e-mail или username), токены и пароли. Домен e-mail сохраняется,
// чтобы по логам можно было понять источник трафика.
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - при локальной части из ≤ 2 символов возвращается "***@<domain>".
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	return mask(s[:i]) + "@" + s[i+1:]
}

// Identifier маскирует идентификатор входа: e-mail-подобные строки через Email,
// остальные (username) — по тем же правилам, что и локальная часть e-mail.
func Identifier(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	return mask(s)
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }

func mask(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}
