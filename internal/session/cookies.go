// session — чтение и запись двух cookie сессии (accessToken/refreshToken).
//
// Атрибуты фиксированы: HttpOnly, SameSite=Lax, Path=/, Secure в проде.
// Очистка — пустое значение и Max-Age=0 (в заголовке Set-Cookie это "Max-Age=0").
package session

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-admin-bff/internal/models"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	DefaultAccessMaxAge  = 7 * 24 * time.Hour
	DefaultRefreshMaxAge = 30 * 24 * time.Hour
)

// Options — параметры cookie.
type Options struct {
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// Cookies пишет cookie сессии в ответ. Безопасен для конкурентного использования:
// состояние только в неизменяемых Options.
type Cookies struct {
	opts Options
}

func New(opts Options) *Cookies {
	if opts.AccessMaxAge <= 0 {
		opts.AccessMaxAge = DefaultAccessMaxAge
	}
	if opts.RefreshMaxAge <= 0 {
		opts.RefreshMaxAge = DefaultRefreshMaxAge
	}

	return &Cookies{opts: opts}
}

// Read достаёт пару токенов из cookie запроса. Отсутствующая cookie — пустая строка.
func Read(r *http.Request) models.Credentials {
	return models.Credentials{
		AccessToken:  value(r, AccessTokenCookie),
		RefreshToken: value(r, RefreshTokenCookie),
	}
}

// HasAccess — присутствие непустой cookie accessToken (проверка Route Guard).
func HasAccess(r *http.Request) bool {
	return value(r, AccessTokenCookie) != ""
}

func value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetAccess перезаписывает cookie accessToken.
func (c *Cookies) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, token, c.opts.AccessMaxAge))
}

// SetRefresh перезаписывает cookie refreshToken.
func (c *Cookies) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshTokenCookie, token, c.opts.RefreshMaxAge))
}

// SetPair пишет access и, если он есть, refresh.
func (c *Cookies) SetPair(w http.ResponseWriter, pair models.TokenPair) {
	c.SetAccess(w, pair.AccessToken)
	if pair.RefreshToken != "" {
		c.SetRefresh(w, pair.RefreshToken)
	}
}

// Clear очищает обе cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, "", 0))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, "", 0))
}

func (c *Cookies) cookie(name, val string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	// net/http: MaxAge<0 означает "Max-Age=0", а MaxAge==0 — атрибут не выставлять.
	if maxAge <= 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(maxAge / time.Second)
	}

	return ck
}
