// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api

import (
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/employee"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// RouterConfig holds the HTTP settings that do not belong to a service.
type RouterConfig struct {
	// AllowedOrigins enables CORS with credentials for these origins.
	AllowedOrigins []string
	// AuthRatePerMinute limits login and register calls per client IP.
	// Zero disables the limit.
	AuthRatePerMinute int
	// WebDir, when set, serves the dashboard build for UI paths.
	WebDir string
	// TrustedProxies lists the proxy addresses or CIDR ranges whose
	// X-Forwarded-For and X-Real-IP headers are honored. Client IPs of
	// other peers come from the socket.
	TrustedProxies []string
	Cookie      SessionCookie
	TokenInBody bool
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Auth      *auth.Service
	Employees *employee.Service
	Guard     *Guard
	Observer  RequestObserver
	Logger    *slog.Logger
	Config    RouterConfig
}

// ParseTrustedProxies parses proxy entries given as CIDR ranges or single
// addresses.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if prefix, err := netip.ParsePrefix(e); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, oops.Code("ROUTER_INVALID_TRUSTED_PROXY").
				With("trusted_proxy", e).
				Wrapf(errutil.ErrConfiguration, "trusted proxy %q is not an address or CIDR range", e)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// NewRouter builds the StaffDesk HTTP handler.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Auth == nil || deps.Employees == nil || deps.Guard == nil {
		return nil, oops.Code("ROUTER_INVALID").Errorf("auth service, employee service and guard are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg.Cookie.Name == "" {
		cfg.Cookie = DefaultSessionCookie()
	}

	var static http.Handler
	if cfg.WebDir != "" {
		info, err := os.Stat(cfg.WebDir)
		if err != nil || !info.IsDir() {
			return nil, oops.Code("ROUTER_INVALID_WEB_DIR").
				With("web_dir", cfg.WebDir).
				Wrapf(errutil.ErrConfiguration, "web dir is not a directory")
		}
		static = http.FileServer(http.Dir(cfg.WebDir))
	}

	trusted, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(trustedRealIP(trusted))
	r.Use(accessLog(logger, deps.Observer))
	r.Use(recoverer(logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(deps.Guard.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authH := NewAuthHandler(deps.Auth, cfg.Cookie, cfg.TokenInBody, logger)
	r.Route("/auth", func(r chi.Router) {
		limited := r
		if cfg.AuthRatePerMinute > 0 {
			limited = r.With(httprate.Limit(
				cfg.AuthRatePerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "Too many requests"})
				}),
			))
		}
		limited.Post("/register", authH.Register)
		limited.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
		r.Get("/me", authH.Me)
	})

	empH := NewEmployeeHandler(deps.Employees, logger)
	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", empH.Routes)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
		})
	})

	if static != nil {
		r.NotFound(static.ServeHTTP)
	}
	return r, nil
}
