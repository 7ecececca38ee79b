// adminclient — Go-клиент BFF дашборда: сессия в cookie jar и типизированные
// ресурсы поверх /api/auth/proxy.
//
// Конвейер авторизации явный: запрос -> на 401 один вызов /api/auth/refresh ->
// ровно один повтор исходного запроса -> повторный 401 (или неудачный refresh)
// превращается в ErrSessionExpired. Рекурсии нет.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
)

// Пути BFF.
const (
	pathSignIn  = "/api/auth/signin"
	pathLogout  = "/api/auth/logout"
	pathRefresh = "/api/auth/refresh"
	pathCheck   = "/api/auth/check"
	pathProxy   = "/api/auth/proxy"
)

// ErrSessionExpired — сессию не удалось продлить; нужен повторный вход.
var ErrSessionExpired = errors.New("adminclient: session expired")

// StatusError — non-2xx ответ, который не является истечением сессии.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("adminclient: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("adminclient: status %d", e.StatusCode)
}

// CheckResult — ответ /api/auth/check.
type CheckResult struct {
	Authenticated bool            `json:"authenticated"`
	Refreshed     bool            `json:"refreshed,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
}

// Client — клиент одного BFF. Безопасен для конкурентного использования.
type Client struct {
	base *url.URL
	hc   *http.Client
}

type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент. Если у него нет Jar, он будет создан.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "adminclient.New"

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	c := &Client{base: base, hc: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(c)
	}

	if c.hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: cookie jar: %w", op, err)
		}
		c.hc.Jar = jar
	}

	return c, nil
}

// Cookies — текущие cookie сессии для BFF (для сохранения между запусками).
func (c *Client) Cookies() []*http.Cookie {
	return c.hc.Jar.Cookies(c.base)
}

// SetCookies восстанавливает ранее сохранённую сессию.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.hc.Jar.SetCookies(c.base, cookies)
}

// SignIn — вход; при успехе BFF кладёт пару токенов в jar.
// Возвращает тело ответа апстрима как есть.
func (c *Client) SignIn(ctx context.Context, email, password string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	status, out, err := c.send(ctx, http.MethodPost, pathSignIn, body)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, statusError(status, out)
	}

	return out, nil
}

// Logout завершает сессию. Cookie в jar очищаются ответом BFF.
func (c *Client) Logout(ctx context.Context) error {
	status, out, err := c.send(ctx, http.MethodPost, pathLogout, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if !ok(status) {
		return statusError(status, out)
	}

	return nil
}

// Check — состояние сессии. Неявный refresh делает сам BFF.
func (c *Client) Check(ctx context.Context) (CheckResult, error) {
	var res CheckResult

	status, out, err := c.send(ctx, http.MethodGet, pathCheck, nil)
	if err != nil {
		return res, err
	}
	if status == http.StatusUnauthorized {
		return CheckResult{Authenticated: false}, nil
	}
	if !ok(status) {
		return res, statusError(status, out)
	}

	if err := json.Unmarshal(out, &res); err != nil {
		return res, fmt.Errorf("adminclient.Check: decode: %w", err)
	}

	return res, nil
}

// Do — запрос к апстриму через прокси BFF с конвейером авторизации.
// path — путь апстрима ("/users/42"); in кодируется в JSON, если не nil;
// out заполняется из тела ответа (голого или обёрнутого в {"data": ...}).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("adminclient.Do: marshal: %w", err)
		}
		body = b
	}

	target := pathProxy + "/" + strings.TrimLeft(path, "/")

	status, resp, err := c.send(ctx, method, target, body)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if err := c.refresh(ctx); err != nil {
			return err
		}

		status, resp, err = c.send(ctx, method, target, body)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return ErrSessionExpired
		}
	}

	if !ok(status) {
		return statusError(status, resp)
	}

	return decodeData(resp, out)
}

// refresh — один вызов /api/auth/refresh. Отказ BFF -> ErrSessionExpired.
func (c *Client) refresh(ctx context.Context) error {
	status, out, err := c.send(ctx, http.MethodPost, pathRefresh, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrSessionExpired
	}
	if !ok(status) {
		return fmt.Errorf("%w: %w", ErrSessionExpired, statusError(status, out))
	}

	return nil
}

// send — один HTTP-вызов; тело ответа читается целиком.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("adminclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("adminclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("adminclient: read body: %w", err)
	}

	return resp.StatusCode, out, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }

// statusError вытаскивает message из известных форм тела ошибки:
// {"message"}, {"error":"..."} и {"error":{"message"}}.
func statusError(status int, body []byte) *StatusError {
	e := &StatusError{StatusCode: status, Body: body}

	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil {
		return e
	}

	e.Message = env.Message
	if e.Message == "" && len(env.Error) > 0 {
		var s string
		var obj struct {
			Message string `json:"message"`
		}
		switch {
		case json.Unmarshal(env.Error, &s) == nil:
			e.Message = s
		case json.Unmarshal(env.Error, &obj) == nil:
			e.Message = obj.Message
		}
	}

	return e
}

// decodeData — тело голое или обёрнутое в {"data": ...}.
func decodeData(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		body = env.Data
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("adminclient: decode: %w", err)
	}

	return nil
}
