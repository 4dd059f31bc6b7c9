// Package gate redirects browser requests between the login page and the
// authenticated areas of a portal.
package gate

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// SSOCallbackPath receives one-time SSO tokens handed back by the identity service.
const SSOCallbackPath = "/api/auth/callback/sso"

type Config struct {
	ProtectedPrefixes []string
	AuthPaths         []string
	LoginPath         string
	HomePath          string
}

func DefaultConfig() Config {
	return Config{
		ProtectedPrefixes: []string{"/dashboard", "/admin"},
		AuthPaths:         []string{"/login"},
		LoginPath:         "/login",
		HomePath:          "/dashboard",
	}
}

// Authenticated reports whether the request carries a valid session.
type Authenticated func(r *http.Request) bool

var staticExt = map[string]bool{
	".svg": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".ico": true, ".css": true, ".js": true,
}

func Static(p string) bool {
	if strings.HasPrefix(p, "/_next/") || strings.HasPrefix(p, "/static/") || p == "/favicon.ico" {
		return true
	}
	return staticExt[strings.ToLower(path.Ext(p))]
}

func Middleware(cfg Config, authenticated Authenticated) func(http.Handler) http.Handler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if Static(p) {
				next.ServeHTTP(w, r)
				return
			}

			if p == cfg.LoginPath {
				if token := r.URL.Query().Get("sso_token"); token != "" {
					target := url.URL{Path: SSOCallbackPath, RawQuery: url.Values{"sso_token": {token}}.Encode()}
					http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
					return
				}
			}

			if matchPrefix(p, cfg.ProtectedPrefixes) {
				if !authenticated(r) {
					target := url.URL{
						Path:     cfg.LoginPath,
						RawQuery: url.Values{"callbackUrl": {requestURL(r)}}.Encode(),
					}
					http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if matchExact(p, cfg.AuthPaths) && authenticated(r) {
				http.Redirect(w, r, cfg.HomePath, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func matchExact(p string, paths []string) bool {
	for _, candidate := range paths {
		if p == candidate {
			return true
		}
	}
	return false
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
	return u.String()
}
