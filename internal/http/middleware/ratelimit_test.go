package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	// Почти нулевая скорость пополнения: за время теста токены не восстановятся.
	h := RateLimit("signin", 0.0001, 2)(final)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, makeReq("/api/auth/signin"))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, makeReq("/api/auth/signin"))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("Retry-After"))

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "resource_exhausted", env.Error.Code)

	// Другой IP — свой бакет.
	other := makeReq("/api/auth/signin")
	other.RemoteAddr = "10.0.0.9:5555"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_ZeroRPSIsNoop(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RateLimit("signin", 0, 0)(final)

	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, makeReq("/api/auth/signin"))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestLimiterStore_EvictsIdle(t *testing.T) {
	store := newLimiterStore(0.0001, 1, 200*time.Millisecond)
	t.Cleanup(store.cache.Stop)

	require.True(t, store.get("10.0.0.1").Allow())
	require.False(t, store.get("10.0.0.1").Allow())
	require.Equal(t, 1, store.cache.Len())

	require.Eventually(t, func() bool { return store.cache.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	// После вытеснения IP получает свежий бакет.
	require.True(t, store.get("10.0.0.1").Allow())
}

func TestIdleTTL(t *testing.T) {
	require.Equal(t, limiterIdleTTL, idleTTL(10, 5))
	require.Equal(t, 2000*time.Second, idleTTL(0.5, 1000))
}
