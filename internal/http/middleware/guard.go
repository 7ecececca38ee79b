package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/go-admin-bff/internal/metrics"
	"github.com/pribylovaa/go-admin-bff/internal/session"
	logctx "github.com/pribylovaa/go-admin-bff/pkg/log"
)

// GuardOptions — списки маршрутов Route Guard.
//
// Совпадение с элементом списка — точное равенство либо префикс с "/"
// ("/users" покрывает "/users/42", но не "/usersettings").
type GuardOptions struct {
	SignInPath        string
	PublicPaths       []string // sign-in и его подпотоки
	CookieEndpoints   []string // API, которые сами управляют cookie
	ProxyPrefix       string
	AssetPrefix       string
	ProtectedPrefixes []string
}

// decision — результат классификации пути.
type decision int

const (
	allowPublic decision = iota
	allowCredentialEndpoint
	allowStatic
	requireSession
	allowDefault
)

// Guard пропускает навигацию или редиректит на sign-in с ?redirect=<исходный путь>.
//
// Проверяется только присутствие cookie accessToken: подпись и срок жизни
// токена проверяет апстрим на первом запросе, которому нужна личность.
// Ошибок 4xx/5xx мидлвар не отдаёт никогда.
func Guard(opts GuardOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.classify(r.URL.Path) != requireSession || session.HasAccess(r) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.GuardRedirects.Inc()
			logctx.From(r.Context()).Debug("guard_redirect", slog.String("path", r.URL.Path))

			http.Redirect(w, r, opts.signInURL(r.URL.Path), http.StatusTemporaryRedirect)
		})
	}
}

// classify — правила по убыванию приоритета.
func (o GuardOptions) classify(path string) decision {
	switch {
	case matchAny(path, o.PublicPaths) || matchPrefix(path, o.SignInPath):
		return allowPublic
	case matchAny(path, o.CookieEndpoints) || matchPrefix(path, o.ProxyPrefix):
		return allowCredentialEndpoint
	case isStatic(path, o.AssetPrefix):
		return allowStatic
	case path == "/" || matchAny(path, o.ProtectedPrefixes):
		return requireSession
	default:
		return allowDefault
	}
}

func (o GuardOptions) signInURL(original string) string {
	return o.SignInPath + "?" + url.Values{"redirect": {original}}.Encode()
}

func isStatic(path, assetPrefix string) bool {
	return (assetPrefix != "" && strings.HasPrefix(path, assetPrefix)) ||
		path == "/favicon.ico" ||
		strings.Contains(path, ".") ||
		matchPrefix(path, "/api")
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

func matchPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
