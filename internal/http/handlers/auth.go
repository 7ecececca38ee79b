package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-admin-bff/internal/errors"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"github.com/pribylovaa/go-admin-bff/internal/models"
	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
	logctx "github.com/pribylovaa/go-admin-bff/pkg/log"
	"github.com/pribylovaa/go-admin-bff/pkg/redact"
)

// SignIn — POST /api/auth/signin.
// Успешный вход апстрима -> пара токенов в cookie, тело апстрима клиенту как есть.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var in models.SignInRequest
	if err := decodeStrict(r, &in); err != nil || in.Email == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	ctx := logctx.With(r.Context(), slog.String("email", redact.Email(in.Email)))
	log := logctx.From(ctx)

	resp, err := h.Upstream.SignIn(ctx, in)
	if err != nil {
		log.Error("signin_failed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, err)
		return
	}
	if !resp.OK() {
		log.Info("signin_rejected", slog.Int("status", resp.StatusCode))
		relay(w, resp)
		return
	}

	pair, err := models.ParseTokenPair(resp.Body)
	if err != nil {
		log.Error("signin_malformed", slog.String("err", err.Error()))
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", apierrors.ErrUpstreamMalformed, err))
		return
	}

	h.Cookies.SetPair(w, pair)
	metrics.TokenRotations.WithLabelValues("signin").Inc()
	log.Info("signin_ok")

	relay(w, resp)
}

// Logout — POST /api/auth/logout.
// Cookie очищаются при любом исходе вызова апстрима.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	creds := session.Read(r)
	if !creds.HasAccess() {
		apierrors.WriteError(w, r, apierrors.ErrNoAccessToken)
		return
	}

	log := logctx.From(r.Context())
	localOnly := false

	resp, err := h.Upstream.Logout(r.Context(), creds)
	switch {
	case err != nil:
		log.Warn("logout_upstream_failed", slog.String("err", err.Error()))
		localOnly = true
	case !resp.OK():
		log.Warn("logout_upstream_rejected", slog.Int("status", resp.StatusCode))
		localOnly = true
	}

	h.Cookies.Clear(w)

	msg := "logged out"
	if localOnly {
		msg = "logged out locally"
	}
	writeJSON(w, http.StatusOK, models.LogoutResponse{Success: true, Message: msg, LocalOnly: localOnly})
}

// Refresh — POST /api/auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	creds := session.Read(r)
	if !creds.HasRefresh() {
		apierrors.WriteError(w, r, apierrors.ErrNoRefreshToken)
		return
	}

	resp, err := h.rotate(r.Context(), w, creds.RefreshToken, "refresh")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	relay(w, resp)
}

// SetTokens — POST /api/auth/set-tokens: запись cookie из тела запроса.
func (h *Handlers) SetTokens(w http.ResponseWriter, r *http.Request) {
	var in models.SetTokensRequest
	if err := decodeStrict(r, &in); err != nil || in.AccessToken == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	h.Cookies.SetPair(w, models.TokenPair{AccessToken: in.AccessToken, RefreshToken: in.RefreshToken})
	writeJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "tokens set"})
}

// ClearTokens — POST /api/auth/clear-tokens.
func (h *Handlers) ClearTokens(w http.ResponseWriter, r *http.Request) {
	h.Cookies.Clear(w)
	writeJSON(w, http.StatusOK, models.StatusResponse{Success: true, Message: "tokens cleared"})
}

// Check — GET /api/auth/check.
//
// Валидация access-токена через /auth/me; при 401 (или когда есть только
// refresh-cookie) один неявный refresh. Неаутентифицированная сессия -> 401
// и очистка обеих cookie. Прочие ошибки апстрима ретранслируются.
func (h *Handlers) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds := session.Read(r)

	if creds.HasAccess() {
		resp, err := h.Upstream.Me(ctx, creds)
		if err != nil {
			logctx.From(ctx).Error("check_failed", slog.String("err", err.Error()))
			apierrors.WriteError(w, r, err)
			return
		}

		switch {
		case resp.OK():
			out := models.CheckResponse{Authenticated: true}
			if json.Valid(resp.Body) {
				out.User = resp.Body
			}
			writeJSON(w, http.StatusOK, out)
			return
		case resp.StatusCode != http.StatusUnauthorized:
			relay(w, resp)
			return
		}
	}

	if creds.HasRefresh() {
		resp, err := h.rotate(ctx, w, creds.RefreshToken, "check")
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		switch {
		case resp.OK():
			writeJSON(w, http.StatusOK, models.CheckResponse{Authenticated: true, Refreshed: true})
			return
		case resp.StatusCode != http.StatusUnauthorized:
			relay(w, resp)
			return
		}
	}

	h.Cookies.Clear(w)
	writeJSON(w, http.StatusUnauthorized, models.CheckResponse{Authenticated: false})
}

// rotate — вызов /auth/refresh-token. На 2xx с парой токенов cookie
// перезаписываются; non-2xx возвращается вызывающему без изменений.
// 2xx без токенов -> ErrUpstreamMalformed.
func (h *Handlers) rotate(ctx context.Context, w http.ResponseWriter, refreshToken, source string) (*upstream.Response, error) {
	log := logctx.From(ctx).With(slog.String("refresh_token", redact.Token(refreshToken)))

	resp, err := h.Upstream.RefreshToken(ctx, refreshToken)
	if err != nil {
		log.Error("refresh_failed", slog.String("err", err.Error()))
		return nil, err
	}
	if !resp.OK() {
		log.Info("refresh_rejected", slog.Int("status", resp.StatusCode))
		return resp, nil
	}

	pair, err := models.ParseTokenPair(resp.Body)
	if err != nil {
		log.Error("refresh_malformed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", apierrors.ErrUpstreamMalformed, err)
	}

	h.Cookies.SetPair(w, pair)
	metrics.TokenRotations.WithLabelValues(source).Inc()

	return resp, nil
}
