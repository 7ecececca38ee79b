// metrics — Prometheus-коллекторы BFF. Регистрируются один раз в main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "admin_bff"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Number of handled HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by method and route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total", Help: "Number of upstream calls by method and outcome (status class or error)."},
		[]string{"method", "outcome"},
	)
	GuardRedirects = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "guard_redirects_total", Help: "Number of navigations redirected to sign-in."},
	)
	TokenRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "token_rotations_total", Help: "Number of session cookie rewrites by source."},
		[]string{"source"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of requests rejected by the rate limiter."},
		[]string{"route"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(UpstreamRequests)
	reg.MustRegister(GuardRedirects)
	reg.MustRegister(TokenRotations)
	reg.MustRegister(RateLimitRejected)
}
