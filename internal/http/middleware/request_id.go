package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
)

const (
	headerRequestID = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID гарантирует X-Request-Id у запроса, ответа и в контексте
// (ключ upstream.CtxRequestID: его же получит апстрим).
//
// Входящий id принимается, если он не длиннее 128 символов и состоит из
// печатных ASCII без пробелов; иначе выдаётся новый UUID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
				r.Header.Set(headerRequestID, id)
			}
			w.Header().Set(headerRequestID, id)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), upstream.CtxRequestID, id)))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}

// requestID — id текущего запроса из контекста (пусто, если RequestID не стоит в цепочке).
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(upstream.CtxRequestID).(string)
	return id
}
