// errors стандартизирует ответы об ошибках HTTP-слоя admin-bff.
// На вход он принимает ошибку (sentinel-ошибки ниже, обёрнутые через %w),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Ошибки апстрима с HTTP-ответом (4xx/5xx) сюда не попадают: хендлеры
// ретранслируют их как есть, чтобы клиент видел настоящую ошибку апстрима.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrInvalidArgument — битое тело запроса или отсутствующее обязательное поле.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — маршрута/файла нет.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated — общая ошибка отсутствия/невалидности сессии.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNoAccessToken — нет cookie accessToken там, где она обязательна.
	ErrNoAccessToken = errors.New("no access token")
	// ErrNoRefreshToken — нет cookie refreshToken там, где она обязательна.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRateLimited — превышен лимит частоты запросов.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstreamUnavailable — сетевой сбой при обращении к апстриму (DNS, refused, timeout).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed — апстрим ответил 2xx, но тело не удалось разобрать.
	ErrUpstreamMalformed = errors.New("upstream malformed response")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ProxyErrorResponse — фиксированный конверт ошибки generic-прокси.
type ProxyErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// ToHTTP конвертирует входную ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - известная sentinel-ошибка (в т.ч. обёрнутая) - маппим через base().
//   - прочее - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	httpStatus, code, msg := base(err)
	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
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

// WriteProxyError пишет 500 с конвертом {error, message, path}.
// Исходная ошибка клиенту не отдаётся: она нужна только в логах оператора.
func WriteProxyError(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ProxyErrorResponse{
		Error:   "proxy_error",
		Message: "failed to reach upstream service",
		Path:    path,
	})
}

// base — маппинг ошибка -> HTTP/FE-код/сообщение.
//   - ErrInvalidArgument -> 400
//   - ErrNotFound -> 404
//   - ErrNoAccessToken / ErrNoRefreshToken / ErrUnauthenticated -> 401
//   - ErrRateLimited -> 429
//   - context.Canceled -> 499 (клиент закрыл соединение)
//   - context.DeadlineExceeded -> 504 (таймаут запроса к апстриму)
//   - ErrUpstreamUnavailable / ErrUpstreamMalformed -> 500
//   - прочее -> 500/internal
//
// Порядок важен: контекстные ошибки проверяются раньше ErrUpstreamUnavailable,
// потому что транспорт оборачивает их тоже.
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, ErrNoAccessToken):
		return http.StatusUnauthorized, "unauthenticated", "no access token"
	case errors.Is(err, ErrNoRefreshToken):
		return http.StatusUnauthorized, "unauthenticated", "no refresh token"
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "resource_exhausted", "too many requests"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusInternalServerError, "upstream_unavailable", "upstream unavailable"
	case errors.Is(err, ErrUpstreamMalformed):
		return http.StatusInternalServerError, "upstream_malformed", "malformed upstream response"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
