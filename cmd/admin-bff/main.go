package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-admin-bff/internal/config"
	bffhttp "github.com/pribylovaa/go-admin-bff/internal/http"
	"github.com/pribylovaa/go-admin-bff/internal/http/handlers"
	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"github.com/pribylovaa/go-admin-bff/internal/session"
	"github.com/pribylovaa/go-admin-bff/internal/upstream"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

// run поднимает BFF и блокируется до отмены ctx или падения сервера.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting admin-bff",
		slog.String("env", cfg.Env),
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.Bool("secure_cookies", cfg.IsProd()),
	)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	up, err := upstream.New(cfg.Upstream, log)
	if err != nil {
		return fmt.Errorf("upstream init: %w", err)
	}

	cookies := session.New(session.Options{
		Secure:        cfg.IsProd(),
		AccessMaxAge:  cfg.Session.AccessMaxAge,
		RefreshMaxAge: cfg.Session.RefreshMaxAge,
	})

	app := bffhttp.NewRouter(handlers.New(up, cookies), bffhttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Service,
		Guard:       bffhttp.GuardOptions(cfg.Guard),
		SignInRPS:   cfg.RateLimit.SignInRPS,
		SignInBurst: cfg.RateLimit.SignInBurst,
		StaticDir:   cfg.Static.Dir,
	})

	var ready atomic.Bool
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           withProbes(app, &ready),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	log.Info("http_listen_start", slog.String("addr", srv.Addr))

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ready.Store(true)
	log.Info("bff_ready")

	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http serve: %w", err)
		}
	}

	// Сначала снимаем readiness, чтобы балансировщик перестал слать трафик.
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
		return nil
	}
	log.Info("http_stopped")

	return nil
}

// withProbes — служебные эндпойнты поверх приложения.
// Они не проходят через Route Guard и логирование запросов.
// Совпадение только точное: остальные пути уходят в app без чистки (// и .. доходят до прокси).
func withProbes(app http.Handler, ready *atomic.Bool) http.Handler {
	metricsHandler := promhttp.Handler()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			app.ServeHTTP(w, r)
			return
		}

		switch r.URL.Path {
		case "/livez":
			_, _ = w.Write([]byte("ok"))
		case "/healthz":
			if !ready.Load() {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		case "/metrics":
			metricsHandler.ServeHTTP(w, r)
		default:
			app.ServeHTTP(w, r)
		}
	})
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case "dev":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
