// upstream — HTTP-клиент единственного REST-апстрима.
//
// Do стримит ответ (для generic-прокси), остальные методы буферизуют
// небольшое JSON-тело auth-эндпойнтов.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pribylovaa/go-admin-bff/internal/config"
	apierrors "github.com/pribylovaa/go-admin-bff/internal/errors"
	"github.com/pribylovaa/go-admin-bff/internal/models"
)

// Контракт заголовков с апстримом.
const (
	HeaderRefreshToken    = "X-Refresh-Token"
	HeaderTokenRefreshed  = "X-Token-Refreshed"
	HeaderNewAccessToken  = "X-New-Access-Token"
	HeaderNewRefreshToken = "X-New-Refresh-Token"
)

// Эндпойнты апстрима, которые BFF вызывает сам.
const (
	PathSignIn  = "/auth/signin"
	PathLogout  = "/auth/logout"
	PathRefresh = "/auth/refresh-token"
	PathMe      = "/auth/me"
)

// maxBodyBytes — верхняя граница буферизуемого тела auth-ответов.
const maxBodyBytes = 1 << 20

// Request — дескриптор одного исходящего вызова. Живёт ровно один запрос.
type Request struct {
	Method        string
	Path          string // экранированный, как URL.EscapedPath
	RawQuery      string
	Body          io.Reader
	ContentLength int64
	Credentials   models.Credentials
}

// Response — буферизованный ответ апстрима.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK — 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Client — клиент апстрима. Безопасен для конкурентного использования.
type Client struct {
	base    *url.URL
	hc      *http.Client
	timeout time.Duration
}

// New создаёт клиент с цепочкой транспорта: metadata -> logging -> metrics -> pooled.
func New(cfg config.UpstreamConfig, log *slog.Logger) (*Client, error) {
	const op = "internal/upstream/New"

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, cfg.BaseURL)
	}

	// Timeout ограничивает ожидание заголовков ответа, а не чтение тела:
	// стрим прокси живёт под дедлайном входящего запроса.
	pooled := cleanhttp.DefaultPooledTransport()
	pooled.ResponseHeaderTimeout = cfg.Timeout

	var rt http.RoundTripper = pooled
	rt = withMetrics(rt)
	rt = withLogging(rt, log)
	rt = withMetadata(rt, cfg.UserAgent)

	return &Client{
		base:    base,
		timeout: cfg.Timeout,
		hc: &http.Client{
			Transport: rt,
			// Редиректы апстрима ретранслируем клиенту, а не следуем им.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}, nil
}

// URL собирает <base>/<path>[?query]. path передаётся уже экранированным,
// повторно не кодируется. Слеши на стыке схлопываются.
func (c *Client) URL(path, rawQuery string) (string, error) {
	raw := strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("upstream.URL: %w", err)
	}

	u := *c.base
	u.Path, u.RawPath = decoded, raw
	u.RawQuery = rawQuery
	u.Fragment, u.RawFragment = "", ""

	return u.String(), nil
}

// Do выполняет запрос и возвращает ответ без чтения тела. Закрыть Body — забота вызывающего.
// Сетевые ошибки оборачиваются в ErrUpstreamUnavailable.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	const op = "upstream.Do"

	target, err := c.URL(req.Path, req.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	if req.Body != nil && req.ContentLength > 0 {
		httpReq.ContentLength = req.ContentLength
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if req.Credentials.HasAccess() {
		httpReq.Header.Set("Authorization", "Bearer "+req.Credentials.AccessToken)
	}
	if req.Credentials.HasRefresh() {
		httpReq.Header.Set(HeaderRefreshToken, req.Credentials.RefreshToken)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apierrors.ErrUpstreamUnavailable, err)
	}

	return resp, nil
}

// SignIn — POST /auth/signin.
func (c *Client) SignIn(ctx context.Context, in models.SignInRequest) (*Response, error) {
	return c.postJSON(ctx, PathSignIn, in, models.Credentials{})
}

// Logout — POST /auth/logout с обоими токенами.
func (c *Client) Logout(ctx context.Context, creds models.Credentials) (*Response, error) {
	return c.postJSON(ctx, PathLogout, models.RefreshRequest{RefreshToken: creds.RefreshToken}, creds)
}

// RefreshToken — POST /auth/refresh-token. Одноразовость токена — забота апстрима.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Response, error) {
	return c.postJSON(ctx, PathRefresh,
		models.RefreshRequest{RefreshToken: refreshToken},
		models.Credentials{RefreshToken: refreshToken},
	)
}

// Me — GET /auth/me: валидация access-токена апстримом.
func (c *Client) Me(ctx context.Context, creds models.Credentials) (*Response, error) {
	return c.call(ctx, Request{Method: http.MethodGet, Path: PathMe, Credentials: creds})
}

func (c *Client) postJSON(ctx context.Context, path string, in any, creds models.Credentials) (*Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("upstream.postJSON: marshal: %w", err)
	}

	return c.call(ctx, Request{
		Method:        http.MethodPost,
		Path:          path,
		Body:          bytes.NewReader(body),
		ContentLength: int64(len(body)),
		Credentials:   creds,
	})
}

func (c *Client) call(ctx context.Context, req Request) (*Response, error) {
	const op = "upstream.call"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %w", op, apierrors.ErrUpstreamUnavailable, err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
