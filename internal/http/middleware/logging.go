package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logctx "github.com/pribylovaa/go-admin-bff/pkg/log"
)

// Logging кладёт в контекст логгер с request_id и пишет одну запись "http"
// на запрос: 5xx на уровне Error, остальное Info.
// Query не логируется: в нём бывают токены приглашений и сброса пароля.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := l
			if rid := requestID(r.Context()); rid != "" {
				reqLog = reqLog.With(slog.String("request_id", rid))
			}
			ctx := logctx.Into(r.Context(), reqLog)

			tw := track(w)
			start := time.Now()
			next.ServeHTTP(tw, r.WithContext(ctx))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", tw.code()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", tw.bytes),
			}
			if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
				attrs = append(attrs, slog.String("route", rc.RoutePattern()))
			}

			level := slog.LevelInfo
			if tw.code() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			reqLog.LogAttrs(ctx, level, "http", attrs...)
		})
	}
}
