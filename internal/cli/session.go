package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// sessionFile — сохранённая между запусками сессия adminctl.
type sessionFile struct {
	Server       string    `yaml:"server"`
	Email        string    `yaml:"email,omitempty"`
	AccessToken  string    `yaml:"access_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	SavedAt      time.Time `yaml:"saved_at"`
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".adminctl", "session.yaml")
	}
	return filepath.Join(home, ".adminctl", "session.yaml")
}

// loadSession — отсутствующий файл не ошибка: пустая сессия.
func loadSession(path string) (sessionFile, error) {
	var s sessionFile

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read session: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

func saveSession(path string, s sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// cookies — cookie для jar клиента из сохранённой сессии.
func (s sessionFile) cookies() []*http.Cookie {
	var out []*http.Cookie
	if s.AccessToken != "" {
		out = append(out, &http.Cookie{Name: accessCookie, Value: s.AccessToken, Path: "/"})
	}
	if s.RefreshToken != "" {
		out = append(out, &http.Cookie{Name: refreshCookie, Value: s.RefreshToken, Path: "/"})
	}
	return out
}

// withCookies — снимок jar обратно в сессию.
func (s sessionFile) withCookies(cookies []*http.Cookie) sessionFile {
	s.AccessToken, s.RefreshToken = "", ""
	for _, c := range cookies {
		switch c.Name {
		case accessCookie:
			s.AccessToken = c.Value
		case refreshCookie:
			s.RefreshToken = c.Value
		}
	}
	s.SavedAt = time.Now().UTC()
	return s
}
