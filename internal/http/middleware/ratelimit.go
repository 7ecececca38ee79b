package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	apierrors "github.com/pribylovaa/go-admin-bff/internal/errors"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"golang.org/x/time/rate"
)

// limiterIdleTTL — сколько живёт лимитер IP без запросов.
const limiterIdleTTL = 10 * time.Minute

// RateLimit — token bucket на IP клиента (rps событий в секунду, burst — ёмкость).
// Хранилище лимитеров своё у каждого экземпляра мидлвара.
// rps <= 0 делает мидлвар no-op.
func RateLimit(route string, rps float64, burst int) Middleware {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}

		store := newLimiterStore(rps, burst, idleTTL(rps, burst))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.get(clientIP(r)).Allow() {
				metrics.RateLimitRejected.WithLabelValues(route).Inc()
				w.Header().Set("Retry-After", "1")
				apierrors.WriteError(w, r, apierrors.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limiterStore — лимитеры по ключу с вытеснением простаивающих.
type limiterStore struct {
	cache *ttlcache.Cache[string, *rate.Limiter]
	rps   rate.Limit
	burst int
}

func newLimiterStore(rps float64, burst int, idle time.Duration) *limiterStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *rate.Limiter](idle),
	)
	go cache.Start()

	return &limiterStore{cache: cache, rps: rate.Limit(rps), burst: burst}
}

// get продлевает жизнь лимитера при каждом обращении (Get трогает TTL, GetOrSet нет).
func (s *limiterStore) get(key string) *rate.Limiter {
	if item := s.cache.Get(key); item != nil {
		return item.Value()
	}
	item, _ := s.cache.GetOrSet(key, rate.NewLimiter(s.rps, s.burst))
	return item.Value()
}

// idleTTL не короче полного пополнения бакета: к вытеснению лимитер уже полон.
func idleTTL(rps float64, burst int) time.Duration {
	refill := time.Duration(float64(burst) / rps * float64(time.Second))
	if refill > limiterIdleTTL {
		return refill
	}
	return limiterIdleTTL
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
