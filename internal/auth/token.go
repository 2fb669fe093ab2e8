// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

const tokenIssuer = "staffdesk"

// Token verification failures. All wrap errutil.ErrUnauthenticated.
var (
	ErrTokenMissing = fmt.Errorf("%w: token missing", errutil.ErrUnauthenticated)
	ErrTokenInvalid = fmt.Errorf("%w: token invalid", errutil.ErrUnauthenticated)
	ErrTokenExpired = fmt.Errorf("%w: token expired", errutil.ErrUnauthenticated)
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", errutil.ErrUnauthenticated)
)

// TokenFailure names why a token was rejected, for logs and metrics.
type TokenFailure string

// Token failure kinds.
const (
	FailureNone    TokenFailure = ""
	FailureMissing TokenFailure = "missing"
	FailureInvalid TokenFailure = "invalid"
	FailureExpired TokenFailure = "expired"
	FailureRevoked TokenFailure = "revoked"
)

// ClassifyTokenError maps a Verify error to its failure kind.
// Errors that are not token failures classify as FailureNone.
func ClassifyTokenError(err error) TokenFailure {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return FailureMissing
	case errors.Is(err, ErrTokenExpired):
		return FailureExpired
	case errors.Is(err, ErrTokenRevoked):
		return FailureRevoked
	case errors.Is(err, ErrTokenInvalid):
		return FailureInvalid
	default:
		return FailureNone
	}
}

// Claims is the payload of a session token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a ULID.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID_SUBJECT").
			With("subject", c.Subject).
			Wrap(ErrTokenInvalid)
	}
	return id, nil
}

// Denylist records revoked token IDs until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	denylist Denylist
	parser   *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithDenylist enables revocation.
func WithDenylist(d Denylist) TokenOption {
	return func(s *TokenService) { s.denylist = d }
}

// NewTokenService creates a TokenService. The secret is required.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, oops.Code("CONFIG_MISSING_SECRET").
			Public("Server misconfigured").
			Wrapf(errutil.ErrConfiguration, "token signing secret is not set")
	}
	if ttl <= 0 {
		return nil, oops.Code("CONFIG_INVALID_TTL").
			With("ttl", ttl.String()).
			Wrapf(errutil.ErrConfiguration, "token ttl must be positive")
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for user.
func (s *TokenService) Issue(user *User) (string, *Claims, error) {
	now := s.now()
	// NumericDate has whole-second precision; round expiry up so the token
	// is never rejected before now+ttl.
	expires := now.Add(s.ttl)
	if t := expires.Truncate(time.Second); !t.Equal(expires) {
		expires = t.Add(time.Second)
	}
	claims := &Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, oops.Code("TOKEN_SIGN_FAILED").With("user_id", user.ID.String()).Wrap(err)
	}
	return signed, claims, nil
}

// Verify checks the signature, expiry and revocation status of token.
func (s *TokenService) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, oops.Code("TOKEN_MISSING").Wrap(ErrTokenMissing)
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").
				With("subject", claims.Subject).
				Wrap(ErrTokenExpired)
		}
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", err.Error()).
			Wrap(ErrTokenInvalid)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, oops.Code("TOKEN_REVOCATION_CHECK_FAILED").
				With("token_id", claims.ID).
				Wrap(err)
		}
		if revoked {
			return nil, oops.Code("TOKEN_REVOKED").
				With("token_id", claims.ID).
				Wrap(ErrTokenRevoked)
		}
	}

	return claims, nil
}

// Revoke denylists the token described by claims until it expires.
// It is a no-op when no denylist is configured.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.denylist == nil || claims == nil || claims.ID == "" {
		return nil
	}
	until := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.denylist.Revoke(ctx, claims.ID, until); err != nil {
		return oops.Code("TOKEN_REVOKE_FAILED").With("token_id", claims.ID).Wrap(err)
	}
	return nil
}
