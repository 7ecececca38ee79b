package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
)

// Metrics считает запросы и латентность по шаблону маршрута chi
// (а не по сырому пути, чтобы не раздувать кардинальность на /api/auth/proxy/*).
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := track(w)
			start := time.Now()

			next.ServeHTTP(tw, r)

			route := "other"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(tw.code())).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
