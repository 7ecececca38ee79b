// upstreamtest — in-memory апстрим для тестов BFF и adminclient.
//
// Repository — явное хранилище (пользователи, выданные токены, записи ресурсов),
// которое тест держит по ссылке. В прод-сборку не входит.
package upstreamtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-admin-bff/internal/models"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
)

// Record — произвольная запись ресурса (users, roles, policies, ...).
type Record map[string]any

// Repository — in-memory состояние апстрима.
type Repository struct {
	mu        sync.Mutex
	passwords map[string]string
	access    map[string]string // access token -> email
	refresh   map[string]string // refresh token -> email
	resources map[string]map[string]Record
}

func NewRepository() *Repository {
	return &Repository{
		passwords: make(map[string]string),
		access:    make(map[string]string),
		refresh:   make(map[string]string),
		resources: make(map[string]map[string]Record),
	}
}

// AddUser регистрирует учётку для /auth/signin.
func (r *Repository) AddUser(email, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passwords[email] = password
}

// Issue выдаёт новую пару токенов для email.
func (r *Repository) Issue(email string) models.TokenPair {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := models.TokenPair{
		AccessToken:  "at-" + uuid.NewString(),
		RefreshToken: "rt-" + uuid.NewString(),
	}
	r.access[pair.AccessToken] = email
	r.refresh[pair.RefreshToken] = email
	return pair
}

// RevokeAccess делает access-токен невалидным (имитация истечения).
func (r *Repository) RevokeAccess(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.access, token)
}

// RevokeRefresh делает refresh-токен невалидным.
func (r *Repository) RevokeRefresh(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, token)
}

// Put кладёт запись ресурса.
func (r *Repository) Put(resource, id string, rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resources[resource] == nil {
		r.resources[resource] = make(map[string]Record)
	}
	rec["id"] = id
	r.resources[resource][id] = rec
}

// Get возвращает запись ресурса.
func (r *Repository) Get(resource, id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.resources[resource][id]
	return rec, ok
}

func (r *Repository) list(resource string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.resources[resource]))
	for _, rec := range r.resources[resource] {
		out = append(out, rec)
	}
	return out
}

func (r *Repository) delete(resource, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resources[resource][id]; !ok {
		return false
	}
	delete(r.resources[resource], id)
	return true
}

func (r *Repository) emailByAccess(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email, ok := r.access[token]
	return email, ok
}

func (r *Repository) emailByRefresh(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email, ok := r.refresh[token]
	return email, ok
}

func (r *Repository) checkPassword(email, password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.passwords[email]
	return ok && p == password
}

// Recorded — снимок входящего запроса.
type Recorded struct {
	Method      string
	Path        string
	EscapedPath string
	RawQuery    string
	Header      http.Header
	Body        []byte
}

// Server — httptest-сервер поверх Repository.
// Умеет ротировать токены на ответах ресурсов (RotateTokens) и отказывать (FailWith).
type Server struct {
	*httptest.Server
	Repo *Repository

	mu     sync.Mutex
	last   Recorded
	calls  map[string]int
	rotate bool
	fail   int
}

// New поднимает апстрим и регистрирует его закрытие в t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{Repo: NewRepository(), calls: make(map[string]int)}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)

	return s
}

// Last — последний принятый запрос.
func (s *Server) Last() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Calls — сколько раз вызывали путь.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// RotateTokens включает выдачу заголовков ротации на ответах ресурсов.
func (s *Server) RotateTokens(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate = on
}

// FailWith заставляет все маршруты отвечать status. 0 выключает.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = status
}

func (s *Server) rotating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotate
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Post(upstream.PathSignIn, s.signIn)
	r.Post(upstream.PathLogout, s.logout)
	r.Post(upstream.PathRefresh, s.refresh)
	r.Get(upstream.PathMe, s.me)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/{resource}", s.listResource)
		r.Post("/{resource}", s.createResource)
		r.Get("/{resource}/{id}", s.getResource)
		r.Put("/{resource}/{id}", s.updateResource)
		r.Patch("/{resource}/{id}", s.updateResource)
		r.Delete("/{resource}/{id}", s.deleteResource)
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.last = Recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			EscapedPath: r.URL.EscapedPath(),
			RawQuery:    r.URL.RawQuery,
			Header:      r.Header.Clone(),
			Body:        body,
		}
		s.calls[r.URL.Path]++
		fail := s.fail
		s.mu.Unlock()

		if fail != 0 {
			writeJSON(w, fail, map[string]any{"success": false, "message": "injected failure"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Upstream-Node", "node-1")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "unauthorized"})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.Repo.emailByAccess(bearer(r)); !ok {
			unauthorized(w)
			return
		}

		if s.rotating() {
			email, _ := s.Repo.emailByAccess(bearer(r))
			pair := s.Repo.Issue(email)
			w.Header().Set(upstream.HeaderTokenRefreshed, "true")
			w.Header().Set(upstream.HeaderNewAccessToken, pair.AccessToken)
			w.Header().Set(upstream.HeaderNewRefreshToken, pair.RefreshToken)
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}
	if !s.Repo.checkPassword(in.Email, in.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
		return
	}

	pair := s.Repo.Issue(in.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
			"user":         map[string]any{"email": in.Email},
		},
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	tok := bearer(r)
	if _, ok := s.Repo.emailByAccess(tok); !ok {
		unauthorized(w)
		return
	}

	s.Repo.RevokeAccess(tok)
	if rt := r.Header.Get(upstream.HeaderRefreshToken); rt != "" {
		s.Repo.RevokeRefresh(rt)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	email, ok := s.Repo.emailByRefresh(in.RefreshToken)
	if !ok {
		unauthorized(w)
		return
	}

	pair := s.Repo.Issue(email)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    pair,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	email, ok := s.Repo.emailByAccess(bearer(r))
	if !ok {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": email})
}

func (s *Server) listResource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": s.Repo.list(chi.URLParam(r, "resource"))})
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Repo.Get(chi.URLParam(r, "resource"), chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	id := uuid.NewString()
	s.Repo.Put(chi.URLParam(r, "resource"), id, rec)
	writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
}

func (s *Server) updateResource(w http.ResponseWriter, r *http.Request) {
	resource, id := chi.URLParam(r, "resource"), chi.URLParam(r, "id")
	if _, ok := s.Repo.Get(resource, id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad request"})
		return
	}

	s.Repo.Put(resource, id, rec)
	writeJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (s *Server) deleteResource(w http.ResponseWriter, r *http.Request) {
	if !s.Repo.delete(chi.URLParam(r, "resource"), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
