package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/go-admin-bff/internal/errors"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
	logctx "github.com/pribylovaa/go-admin-bff/pkg/log"
)

// relayHeaders — заголовки ответа апстрима, которые доходят до браузера.
// Остальные (Server, Via, X-Upstream-*, Set-Cookie апстрима, ...) отбрасываются.
var relayHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Cache-Control",
	"ETag",
	"Last-Modified",
}

// Proxy — generic-прокси /api/auth/proxy/* -> <upstream base>/*.
//
// Метод и query передаются как есть; тело (кроме GET/DELETE) стримится без
// перекодирования. Токены берутся из cookie и не обязательны: права решает апстрим.
// Если апстрим сообщил о ротации токенов, cookie переписываются в этом же ответе.
func (h *Handlers) Proxy(w http.ResponseWriter, r *http.Request) {
	path := proxyPath(r)
	ctx := logctx.With(r.Context(), slog.String("upstream_path", path))

	req := upstream.Request{
		Method:      r.Method,
		Path:        path,
		RawQuery:    r.URL.RawQuery,
		Credentials: session.Read(r),
	}
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		req.Body = r.Body
		req.ContentLength = r.ContentLength
	}

	resp, err := h.Upstream.Do(ctx, req)
	if err != nil {
		logctx.From(ctx).Error("proxy_failed", slog.String("err", err.Error()))
		apierrors.WriteProxyError(w, path)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	if h.applyRotation(w, resp.Header) {
		logctx.From(ctx).Info("proxy_tokens_rotated")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Статус уже ушёл клиенту: честно обрываем ответ, чтобы обрезанное тело
		// не выглядело целым.
		logctx.From(ctx).Warn("proxy_stream_failed", slog.String("err", err.Error()))
		panic(http.ErrAbortHandler)
	}
}

// proxyPath — хвост пути после /api/auth/proxy/ в экранированном виде.
// %3F, %23, %25 и %2F в сегменте остаются частью пути и уходят апстриму как есть.
func proxyPath(r *http.Request) string {
	tail := chi.URLParam(r, "*")
	// chi матчит по RawPath, если он задан, иначе по декодированному Path.
	if r.URL.RawPath == "" {
		tail = (&url.URL{Path: tail}).EscapedPath()
	}
	return "/" + strings.TrimLeft(tail, "/")
}

func copyHeaders(dst, src http.Header) {
	for _, k := range relayHeaders {
		if v := src.Values(k); len(v) > 0 {
			dst[k] = append([]string(nil), v...)
		}
	}
}

// applyRotation переписывает cookie, если апстрим прислал X-Token-Refreshed: "true"
// и непустой X-New-Access-Token. Refresh-cookie трогаем только при X-New-Refresh-Token.
func (h *Handlers) applyRotation(w http.ResponseWriter, hdr http.Header) bool {
	if hdr.Get(upstream.HeaderTokenRefreshed) != "true" {
		return false
	}

	access := hdr.Get(upstream.HeaderNewAccessToken)
	if access == "" {
		return false
	}

	h.Cookies.SetAccess(w, access)
	if refresh := hdr.Get(upstream.HeaderNewRefreshToken); refresh != "" {
		h.Cookies.SetRefresh(w, refresh)
	}
	metrics.TokenRotations.WithLabelValues("proxy").Inc()

	return true
}
