package upstream

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
)

type CtxKey string

// CtxRequestID — ключ контекста, под которым middleware.RequestID кладёт X-Request-Id.
const CtxRequestID CtxKey = "request_id"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// withMetadata — добавляет в исходящий запрос заголовки:
//   - X-Request-Id (из контекста, иначе новый UUID),
//   - User-Agent (если передан параметром).
//
// RoundTripper не должен менять входной запрос, поэтому работаем с клоном.
func withMetadata(next http.RoundTripper, userAgent string) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		out := req.Clone(req.Context())

		rid, _ := req.Context().Value(CtxRequestID).(string)
		if rid == "" {
			rid = out.Header.Get("X-Request-Id")
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		out.Header.Set("X-Request-Id", rid)

		if userAgent != "" {
			out.Header.Set("User-Agent", userAgent)
		}

		return next.RoundTrip(out)
	})
}

// withLogging — одна финальная запись на исходящий вызов: msg="upstream", status, dur.
// Не логирует тело и заголовки с токенами.
func withLogging(next http.RoundTripper, base *slog.Logger) http.RoundTripper {
	if base == nil {
		base = slog.Default()
	}

	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()

		l := base.With(
			slog.String("request_id", req.Header.Get("X-Request-Id")),
			slog.String("method", req.Method),
			slog.String("target", req.URL.Host),
			slog.String("path", req.URL.Path),
		)

		resp, err := next.RoundTrip(req)
		if err != nil {
			l.Warn("upstream",
				slog.String("err", err.Error()),
				slog.Duration("dur", time.Since(start)),
			)
			return nil, err
		}

		l.Info("upstream",
			slog.Int("status", resp.StatusCode),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, nil
	})
}

// withMetrics — счётчик исходящих вызовов по классу статуса.
func withMetrics(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		outcome := "error"
		if err == nil {
			outcome = strconv.Itoa(resp.StatusCode/100) + "xx"
		}
		metrics.UpstreamRequests.WithLabelValues(req.Method, outcome).Inc()

		return resp, err
	})
}
