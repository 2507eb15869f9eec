package client

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// loggingTransport — логирование исходящих HTTP-вызовов.
// Поведение:
//   - берёт X-Request-Id из запроса (или генерирует новый и добавляет);
//   - выставляет User-Agent, если он не задан;
//   - пишет одну финальную запись уровня Info: msg="http_out", status, dur.
//
// Не логирует тело, cookie и заголовок Authorization.
type loggingTransport struct {
	next      http.RoundTripper
	log       *slog.Logger
	userAgent string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTripper не должен менять исходный запрос.
	req = req.Clone(req.Context())

	rid := req.Header.Get("X-Request-Id")
	if rid == "" {
		rid = strings.ReplaceAll(uuid.NewString(), "-", "")
		req.Header.Set("X-Request-Id", rid)
	}
	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.next.RoundTrip(req)

	attrs := []any{
		slog.String("request_id", rid),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Duration("dur", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("http_out", append(attrs, slog.String("err", err.Error()))...)
		return nil, err
	}

	t.log.Info("http_out", append(attrs, slog.Int("status", resp.StatusCode))...)

	return resp, nil
}
