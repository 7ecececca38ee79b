package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-admin-bff/internal/config"
	"github.com/pribylovaa/go-admin-bff/internal/http/handlers"
	"github.com/pribylovaa/go-admin-bff/internal/http/middleware"
)

const (
	// AuthBasePath — все эндпойнты BFF, работающие с cookie сессии.
	AuthBasePath = "/api/auth"
	// ProxyPrefix — generic-прокси к апстриму.
	ProxyPrefix = AuthBasePath + "/proxy"
)

// proxyMethods — методы, которые прокси пропускает к апстриму.
var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger      *slog.Logger
	Timeout     time.Duration
	Guard       middleware.GuardOptions
	SignInRPS   float64
	SignInBurst int
	StaticDir   string // собранный SPA; пусто — статика не раздаётся
}

// GuardOptions собирает настройки Route Guard из конфига.
// ProxyPrefix и CookieEndpoints фиксированы маршрутами самого BFF.
func GuardOptions(cfg config.GuardConfig) middleware.GuardOptions {
	return middleware.GuardOptions{
		SignInPath:        cfg.SignInPath,
		PublicPaths:       cfg.PublicPaths,
		CookieEndpoints:   cookieEndpoints(),
		ProxyPrefix:       ProxyPrefix,
		AssetPrefix:       cfg.AssetPrefix,
		ProtectedPrefixes: cfg.ProtectedPrefixes,
	}
}

func cookieEndpoints() []string {
	return []string{
		AuthBasePath + "/signin",
		AuthBasePath + "/logout",
		AuthBasePath + "/refresh",
		AuthBasePath + "/set-tokens",
		AuthBasePath + "/clear-tokens",
		AuthBasePath + "/check",
	}
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),            // считаем и редиректы Guard тоже
		middleware.Guard(opts.Guard),    // навигация без cookie -> sign-in
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	registerRoutes(root, h, opts)
	root.NotFound(spaHandler(opts.StaticDir).ServeHTTP)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	r.Route(AuthBasePath, func(r chi.Router) {
		// session
		r.With(middleware.RateLimit("signin", opts.SignInRPS, opts.SignInBurst)).Post("/signin", h.SignIn)
		r.Post("/logout", h.Logout)
		r.Post("/refresh", h.Refresh)
		r.Post("/set-tokens", h.SetTokens)
		r.Post("/clear-tokens", h.ClearTokens)
		r.Get("/check", h.Check)

		// proxy
		for _, m := range proxyMethods {
			r.MethodFunc(m, "/proxy/*", h.Proxy)
		}
	})
}
