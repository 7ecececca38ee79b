package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-admin-bff/internal/config"
	"github.com/pribylovaa/go-admin-bff/internal/models"
	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "secret"
)

func newTestHandlers(t *testing.T, baseURL string) *Handlers {
	t.Helper()

	up, err := upstream.New(config.UpstreamConfig{
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
		UserAgent: "admin-bff-test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return New(up, session.New(session.Options{}))
}

// testMux — минимальная маршрутизация, чтобы chi.URLParam("*") работал как в проде.
func testMux(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/auth/signin", h.SignIn)
	r.Post("/api/auth/logout", h.Logout)
	r.Post("/api/auth/refresh", h.Refresh)
	r.Post("/api/auth/set-tokens", h.SetTokens)
	r.Post("/api/auth/clear-tokens", h.ClearTokens)
	r.Get("/api/auth/check", h.Check)
	r.HandleFunc("/api/auth/proxy/*", h.Proxy)
	return r
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func withSession(req *http.Request, pair models.TokenPair) *http.Request {
	if pair.AccessToken != "" {
		req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: pair.AccessToken})
	}
	if pair.RefreshToken != "" {
		req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: pair.RefreshToken})
	}
	return req
}

func cookiesByName(rr *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rr.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func requireCleared(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()

	got := cookiesByName(rr)
	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
		c, ok := got[name]
		require.True(t, ok, "cookie %s must be set", name)
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0, "Max-Age=0 parses to MaxAge<0")
	}
}

// deadURL — адрес, на котором гарантированно никто не слушает.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }
