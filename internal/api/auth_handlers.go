// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// AuthHandler serves /auth/*.
type AuthHandler struct {
	svc         *auth.Service
	cookie      SessionCookie
	tokenInBody bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthHandler creates an AuthHandler. With tokenInBody the login response
// also carries the token for clients that send it as a Bearer header.
func NewAuthHandler(svc *auth.Service, cookie SessionCookie, tokenInBody bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{svc: svc, cookie: cookie, tokenInBody: tokenInBody, logger: logger, now: time.Now}
}

type userBody struct {
	Message string       `json:"message,omitempty"`
	User    auth.Profile `json:"user"`
}

type loginBody struct {
	Message   string       `json:"message"`
	User      auth.Profile `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userBody{Message: "User registered successfully", User: user.Profile()})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	expires := result.Claims.ExpiresAt.Time
	h.cookie.Set(w, result.Token, expires, h.now())

	body := loginBody{Message: "Login successful", User: result.User.Profile()}
	if h.tokenInBody {
		body.Token = result.Token
		body.ExpiresAt = &expires
	}
	writeJSON(w, http.StatusOK, body)
}

// Logout handles POST /auth/logout. It always clears the cookie; the token
// itself is revoked only when a denylist is configured.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := TokenFromRequest(r, h.cookie.Name); token != "" {
		claims, err := h.svc.Tokens().Verify(r.Context(), token)
		if err == nil {
			if err := h.svc.Logout(r.Context(), claims); err != nil {
				errutil.LogErrorContext(r.Context(), h.logger, "logout revocation failed", err)
			}
		}
	}

	h.cookie.Clear(w)
	writeJSON(w, http.StatusOK, messageBody{Message: "Logged out successfully"})
}

// Me handles GET /auth/me. /auth is public, so the token is checked here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		var err error
		claims, err = h.svc.Tokens().Verify(r.Context(), TokenFromRequest(r, h.cookie.Name))
		if err != nil {
			failure := auth.ClassifyTokenError(err)
			if failure == auth.FailureNone {
				writeError(w, r, h.logger, err)
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: unauthorizedMessage(failure)})
			return
		}
	}

	user, err := h.svc.CurrentUser(r.Context(), claims)
	if err != nil {
		if auth.ClassifyTokenError(err) != auth.FailureNone {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: unauthorizedMessage(auth.FailureInvalid)})
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userBody{User: user.Profile()})
}

// mustClaims returns the claims attached by the guard. Handlers behind the
// guard call it; a missing value is a wiring bug.
func mustClaims(r *http.Request) (*auth.Claims, error) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		return nil, oops.Code("AUTH_NO_SESSION").Wrap(errutil.ErrUnauthenticated)
	}
	return claims, nil
}
