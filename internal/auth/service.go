// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/validation"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// Login outcomes reported to a LoginRecorder.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginLocked             = "locked"
	LoginError              = "error"
)

// LoginRecorder observes login outcomes.
type LoginRecorder interface {
	RecordLogin(result string)
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the payload for signing in.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is a successful login.
type LoginResult struct {
	User   *User
	Token  string
	Claims *Claims
}

// Service provides authentication operations.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   *TokenService
	logger   *slog.Logger
	recorder LoginRecorder
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithLoginRecorder reports login outcomes to r.
func WithLoginRecorder(r LoginRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithServiceClock overrides the time source used for lockouts.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token service is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens returns the token service used to issue sessions.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").
		Public("Invalid credentials").
		Wrapf(errutil.ErrUnauthenticated, "invalid email or password")
}

func userExists(email string) error {
	return oops.Code("AUTH_USER_EXISTS").
		With("email", email).
		Public("User already exists").
		Wrap(errutil.ErrConflict)
}

// Register creates a user with the default role.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.CreateUser(ctx, in, RoleUser)
}

// CreateUser validates in and stores a user with the given role.
// A taken email is reported as a conflict whether it is caught by the
// lookup or by the store's uniqueness constraint.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput, role Role) (*User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	email := in.Email
	if err := s.ensureAvailable(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	return s.insert(ctx, email, in.Name, hash, role)
}

// importInput validates users whose password was hashed elsewhere.
type importInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// ImportUser stores a user with an existing password hash, such as a bcrypt
// hash carried by a seed file. Non-argon2id hashes are upgraded at the next
// successful login.
func (s *Service) ImportUser(ctx context.Context, email, name, passwordHash string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	if err := validation.Struct(importInput{Name: name, Email: email}); err != nil {
		return nil, err
	}
	if _, err := s.hasher.Verify("", passwordHash); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").
			With("email", email).
			Wrapf(errutil.ErrValidation, "unrecognized password hash: %v", err)
	}
	if err := s.ensureAvailable(ctx, email); err != nil {
		return nil, err
	}
	return s.insert(ctx, email, name, passwordHash, role)
}

func (s *Service) ensureAvailable(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return userExists(email)
	case !errors.Is(err, errutil.ErrNotFound):
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return nil
}

func (s *Service) insert(ctx context.Context, email, name, hash string, role Role) (*User, error) {
	user, err := NewUser(email, name, hash, role)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errutil.ErrConflict) {
			return nil, userExists(email)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "role", string(user.Role))
	return user, nil
}

// Login authenticates a user and issues a session token.
// Uses constant-time operations to prevent timing-based email enumeration.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	result, outcome, err := s.login(ctx, in)
	if s.recorder != nil && outcome != "" {
		s.recorder.RecordLogin(outcome)
	}
	return result, err
}

func (s *Service) login(ctx context.Context, in LoginInput) (*LoginResult, string, error) {
	if err := validation.Struct(in); err != nil {
		return nil, "", err
	}

	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(in.Email))

	var targetHash string
	var found bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, errutil.ErrNotFound) {
			return nil, LoginError, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = user.PasswordHash
		found = true
	}

	valid, verifyErr := s.hasher.Verify(in.Password, targetHash)
	if verifyErr != nil {
		if !found {
			return nil, LoginInvalidCredentials, invalidCredentials()
		}
		return nil, LoginError, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	now := s.now()

	if !found || !valid {
		if found {
			user.RecordFailure(now)
			if err := s.users.Update(ctx, user); err != nil {
				errutil.LogErrorContext(ctx, s.logger, "failed to record login failure", err)
			}
		}
		s.logger.InfoContext(ctx, "login rejected", "reason", "invalid credentials")
		return nil, LoginInvalidCredentials, invalidCredentials()
	}

	// Checked after verification so a locked account costs the same as any other.
	if user.IsLocked(now) {
		s.logger.WarnContext(ctx, "login rejected", "reason", "locked", "user_id", user.ID.String())
		return nil, LoginLocked, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			Public("Account is temporarily locked").
			Wrapf(errutil.ErrUnauthenticated, "account is temporarily locked")
	}

	user.RecordSuccess(now)

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, err := s.hasher.Hash(in.Password); err == nil {
			user.PasswordHash = newHash
		}
	}

	// Login succeeds even if the bookkeeping write fails.
	if err := s.users.Update(ctx, user); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "failed to update user after login", err)
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, LoginError, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID.String())
	return &LoginResult{User: user, Token: token, Claims: claims}, LoginSuccess, nil
}

// Logout revokes the session described by claims when revocation is enabled.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").Wrap(err)
	}
	return nil
}

// CurrentUser loads the user a verified token was issued to.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errutil.ErrNotFound) {
			return nil, oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", id.String()).
				Public("User not found").
				Wrap(errutil.ErrNotFound)
		}
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").
			With("user_id", id.String()).
			Wrap(err)
	}
	return user, nil
}
