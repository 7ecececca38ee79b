package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"invalid_argument", ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"not_found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"no_access", ErrNoAccessToken, http.StatusUnauthorized, "unauthenticated"},
		{"no_refresh", ErrNoRefreshToken, http.StatusUnauthorized, "unauthenticated"},
		{"unauth", ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"rate_limited", ErrRateLimited, http.StatusTooManyRequests, "resource_exhausted"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"upstream_unavailable", ErrUpstreamUnavailable, http.StatusInternalServerError, "upstream_unavailable"},
		{"upstream_malformed", ErrUpstreamMalformed, http.StatusInternalServerError, "upstream_malformed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_WrappedErrors(t *testing.T) {
	err := fmt.Errorf("upstream.Do: %w: %w", ErrUpstreamUnavailable, errors.New("connection refused"))
	status, resp := ToHTTP(err)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "upstream_unavailable", resp.Error.Code)
	require.NotContains(t, resp.Error.Message, "refused")

	// Таймаут апстрима важнее обёртки "unavailable".
	err = fmt.Errorf("upstream.Do: %w: %w", ErrUpstreamUnavailable, context.DeadlineExceeded)
	status, _ = ToHTTP(err)
	require.Equal(t, http.StatusGatewayTimeout, status)
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_AddsRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, ErrNoAccessToken)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "rid-1", env.Error.RequestID)
	require.Equal(t, "no access token", env.Error.Message)
}

func TestWriteProxyError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteProxyError(rr, "/users")

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var env ProxyErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "proxy_error", env.Error)
	require.Equal(t, "/users", env.Path)
	require.NotEmpty(t, env.Message)
}
