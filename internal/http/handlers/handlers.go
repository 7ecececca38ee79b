package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
)

// Handlers агрегирует зависимости: клиент апстрима и запись cookie сессии.
type Handlers struct {
	Upstream *upstream.Client
	Cookies  *session.Cookies
}

func New(up *upstream.Client, cookies *session.Cookies) *Handlers {
	return &Handlers{Upstream: up, Cookies: cookies}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// relay — ответ апстрима клиенту как есть: статус и тело без изменений.
func relay(w http.ResponseWriter, resp *upstream.Response) {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}

	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
