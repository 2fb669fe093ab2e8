// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// RouteClass is how the guard treats a path.
type RouteClass int

// Route classes.
const (
	RouteRoot RouteClass = iota
	RoutePublic
	RouteProtectedUI
	RouteProtectedAPI
)

func (c RouteClass) String() string {
	switch c {
	case RouteRoot:
		return "root"
	case RoutePublic:
		return "public"
	case RouteProtectedUI:
		return "protected_ui"
	case RouteProtectedAPI:
		return "protected_api"
	default:
		return "unknown"
	}
}

// DefaultPublicPaths are reachable without a session.
var DefaultPublicPaths = []string{
	"/login",
	"/login/**",
	"/register",
	"/register/**",
	"/auth/**",
	"/healthz",
	"/assets/**",
}

// Guard defaults.
const (
	DefaultLandingPath = "/dashboard"
	DefaultLoginPath   = "/login"
	apiPrefix          = "/api/"
)

// TokenRecorder counts guard decisions by result.
type TokenRecorder interface {
	RecordTokenVerification(result string)
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	// PublicPaths are glob patterns with '/' as separator: "*" stays within
	// one segment, "**" spans segments.
	PublicPaths []string
	LandingPath string
	LoginPath   string
	CookieName  string
}

// Guard authenticates every request that is not public.
type Guard struct {
	tokens     *auth.TokenService
	public     []glob.Glob
	landing    string
	login      string
	cookieName string
	recorder   TokenRecorder
	logger     *slog.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the guard logger.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// WithTokenRecorder reports every decision to r.
func WithTokenRecorder(r TokenRecorder) GuardOption {
	return func(g *Guard) { g.recorder = r }
}

// NewGuard compiles the public path patterns.
func NewGuard(tokens *auth.TokenService, cfg GuardConfig, opts ...GuardOption) (*Guard, error) {
	if tokens == nil {
		return nil, oops.Code("GUARD_INVALID").Errorf("token service is required")
	}
	patterns := cfg.PublicPaths
	if patterns == nil {
		patterns = DefaultPublicPaths
	}

	g := &Guard{
		tokens:     tokens,
		landing:    cfg.LandingPath,
		login:      cfg.LoginPath,
		cookieName: cfg.CookieName,
		logger:     slog.Default(),
	}
	if g.landing == "" {
		g.landing = DefaultLandingPath
	}
	if g.login == "" {
		g.login = DefaultLoginPath
	}
	if g.cookieName == "" {
		g.cookieName = DefaultCookieName
	}

	for _, p := range patterns {
		compiled, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code("GUARD_INVALID_PATTERN").
				With("pattern", p).
				Wrapf(errutil.ErrConfiguration, "compile public path %q: %v", p, err)
		}
		g.public = append(g.public, compiled)
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Classify returns the route class of urlPath.
func (g *Guard) Classify(urlPath string) RouteClass {
	p := cleanPath(urlPath)
	if p == "/" {
		return RouteRoot
	}
	for _, pattern := range g.public {
		if pattern.Match(p) {
			return RoutePublic
		}
	}
	if p == "/api" || strings.HasPrefix(p, apiPrefix) {
		return RouteProtectedAPI
	}
	return RouteProtectedUI
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	// Keep a trailing slash so "/login/" still matches "/login/**".
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// Middleware applies the guard to next.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := g.Classify(r.URL.Path)
		switch class {
		case RouteRoot:
			http.Redirect(w, r, g.landing, http.StatusTemporaryRedirect)
			return
		case RoutePublic:
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.tokens.Verify(r.Context(), TokenFromRequest(r, g.cookieName))
		if err != nil {
			g.reject(w, r, class, err)
			return
		}

		g.record("ok")
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (g *Guard) record(result string) {
	if g.recorder != nil {
		g.recorder.RecordTokenVerification(result)
	}
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, class RouteClass, err error) {
	ctx := r.Context()
	failure := auth.ClassifyTokenError(err)
	attrs := []any{"path", r.URL.Path, "route_class", class.String()}

	switch failure {
	case auth.FailureNone:
		// Not a token problem: the denylist could not be consulted.
		g.record("error")
		writeError(w, r, g.logger, err)
		return
	case auth.FailureInvalid, auth.FailureRevoked:
		g.logger.WarnContext(ctx, "session rejected", append(attrs, "reason", string(failure), "error_code", errutil.Code(err))...)
	default:
		g.logger.DebugContext(ctx, "session rejected", append(attrs, "reason", string(failure))...)
	}
	g.record(string(failure))

	if class == RouteProtectedUI {
		http.Redirect(w, r, g.login, http.StatusTemporaryRedirect)
		return
	}
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: unauthorizedMessage(failure)})
}

// unauthorizedMessage keeps invalid, expired and revoked tokens
// indistinguishable to the client.
func unauthorizedMessage(failure auth.TokenFailure) string {
	if failure == auth.FailureMissing {
		return "Unauthorized"
	}
	return "Invalid token"
}

type claimsKey struct{}

// WithClaims returns a context carrying verified claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims the guard attached to ctx.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireRole lets a request through only if its claims carry one of roles.
// It must run behind the Guard.
func RequireRole(logger *slog.Logger, roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				writeError(w, r, logger, oops.Code("AUTH_NO_SESSION").Wrap(errutil.ErrUnauthenticated))
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				writeError(w, r, logger, oops.Code("AUTH_FORBIDDEN").
					With("role", string(claims.Role)).
					Public("Forbidden").
					Wrap(errutil.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
