// Входные/выходные модели REST-слоя BFF и апстрима.
package models

import (
	"encoding/json"
	"errors"
)

// Credentials — пара токенов сессии, как она лежит в cookie браузера.
// Оба поля опциональны: наличие/валидность решает апстрим.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// HasAccess — есть ли access-токен.
func (c Credentials) HasAccess() bool { return c.AccessToken != "" }

// HasRefresh — есть ли refresh-токен.
func (c Credentials) HasRefresh() bool { return c.RefreshToken != "" }

// TokenPair — пара токенов, которую выдаёт апстрим на signin/refresh-token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ErrNoTokens — в ответе апстрима нет access-токена.
var ErrNoTokens = errors.New("no tokens in payload")

// ParseTokenPair достаёт пару токенов из тела ответа апстрима.
// Поддерживаются оба встречающихся формата: {accessToken, refreshToken}
// на верхнем уровне и тот же объект внутри "data".
func ParseTokenPair(body []byte) (TokenPair, error) {
	var env struct {
		TokenPair
		Data *TokenPair `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return TokenPair{}, err
	}

	if env.AccessToken != "" {
		return env.TokenPair, nil
	}
	if env.Data != nil && env.Data.AccessToken != "" {
		return *env.Data, nil
	}

	return TokenPair{}, ErrNoTokens
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SetTokensRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// StatusResponse — ответ эндпойнтов управления cookie.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LogoutResponse — LocalOnly=true, если апстрим logout не удался,
// а сессия завершена только локально (cookie очищены).
type LogoutResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LocalOnly bool   `json:"local_only"`
}

// CheckResponse — результат /api/auth/check.
// User — тело апстрима /auth/me как есть (если валидация прошла без refresh).
type CheckResponse struct {
	Authenticated bool            `json:"authenticated"`
	Refreshed     bool            `json:"refreshed,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
}
