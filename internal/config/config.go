// config - источник загрузки конфигурации admin-bff.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvProd — окружение, в котором cookie сессии получают атрибут Secure.
const EnvProd = "prod"

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Session   SessionConfig   `yaml:"session"`
	Guard     GuardConfig     `yaml:"guard"`
	Static    StaticConfig    `yaml:"static"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// IsProd — признак продового окружения.
func (c Config) IsProd() bool { return c.Env == EnvProd }

// TimeoutConfig — общий дедлайн обработки входящего запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"30s"`
}

// HTTPConfig — публичный сервер BFF.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// UpstreamConfig — единственный REST-апстрим, владеющий всеми данными.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"UPSTREAM_BASE_URL"   env-default:"http://localhost:8080/api/v1"`
	Timeout   time.Duration `yaml:"timeout"    env:"UPSTREAM_TIMEOUT"    env-default:"15s"`
	UserAgent string        `yaml:"user_agent" env:"UPSTREAM_USER_AGENT" env-default:"admin-bff"`
}

// SessionConfig — время жизни cookie сессии.
// Это max-age самих cookie, а не срок жизни токенов у апстрима.
type SessionConfig struct {
	AccessMaxAge  time.Duration `yaml:"access_max_age"  env:"SESSION_ACCESS_MAX_AGE"  env-default:"168h"`
	RefreshMaxAge time.Duration `yaml:"refresh_max_age" env:"SESSION_REFRESH_MAX_AGE" env-default:"720h"`
}

// GuardConfig — списки маршрутов для Route Guard.
type GuardConfig struct {
	SignInPath        string   `yaml:"sign_in_path"       env:"GUARD_SIGN_IN_PATH"       env-default:"/signin"`
	AssetPrefix       string   `yaml:"asset_prefix"       env:"GUARD_ASSET_PREFIX"       env-default:"/assets/"`
	PublicPaths       []string `yaml:"public_paths"       env:"GUARD_PUBLIC_PATHS"       env-separator:"," env-default:"/signin,/forgot-password,/reset-password,/verify-otp,/accept-invitation"`
	ProtectedPrefixes []string `yaml:"protected_prefixes" env:"GUARD_PROTECTED_PREFIXES" env-separator:"," env-default:"/dashboard,/users,/roles,/policies,/role-policies,/resources,/stores,/actions,/app-config,/profile"`
}

// StaticConfig — каталог собранного SPA дашборда. Пусто — статика не раздаётся.
type StaticConfig struct {
	Dir string `yaml:"dir" env:"STATIC_DIR"`
}

// RateLimitConfig — ограничение частоты попыток входа (на IP).
type RateLimitConfig struct {
	SignInRPS   float64 `yaml:"sign_in_rps"   env:"RATE_LIMIT_SIGN_IN_RPS"   env-default:"1"`
	SignInBurst int     `yaml:"sign_in_burst" env:"RATE_LIMIT_SIGN_IN_BURST" env-default:"5"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

// validate — минимальные инварианты, без которых BFF не может работать.
func validate(cfg *Config) (*Config, error) {
	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("upstream.base_url is required")
	}
	if u, err := url.Parse(cfg.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream.base_url %q must be an absolute URL", cfg.Upstream.BaseURL)
	}
	if !strings.HasPrefix(cfg.Guard.SignInPath, "/") {
		return nil, fmt.Errorf("guard.sign_in_path must start with /, got %q", cfg.Guard.SignInPath)
	}
	if cfg.Session.AccessMaxAge <= 0 || cfg.Session.RefreshMaxAge <= 0 {
		return nil, fmt.Errorf("session max ages must be positive")
	}

	return cfg, nil
}
