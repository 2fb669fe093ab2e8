// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package authtest provides in-memory auth collaborators for tests.
package authtest

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// UserStore is a concurrency-safe in-memory auth.UserRepository.
// Email uniqueness is enforced on Create the way the database index does.
type UserStore struct {
	mu      sync.Mutex
	byID    map[ulid.ULID]auth.User
	byEmail map[string]ulid.ULID

	// Err, when set, is returned by every method.
	Err error
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[ulid.ULID]auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

var _ auth.UserRepository = (*UserStore)(nil)

func notFound(key string) error {
	return oops.Code("USER_NOT_FOUND").With("key", key).Wrap(errutil.ErrNotFound)
}

// Create implements auth.UserRepository.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	email := auth.NormalizeEmail(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return oops.Code("USER_EMAIL_TAKEN").With("email", email).Wrap(errutil.ErrConflict)
	}
	s.byID[user.ID] = *user
	s.byEmail[email] = user.ID
	return nil
}

// GetByID implements auth.UserRepository.
func (s *UserStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, notFound(id.String())
	}
	return &u, nil
}

// GetByEmail implements auth.UserRepository.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, notFound(email)
	}
	u := s.byID[id]
	return &u, nil
}

// Update implements auth.UserRepository.
func (s *UserStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	prev, ok := s.byID[user.ID]
	if !ok {
		return notFound(user.ID.String())
	}
	email := auth.NormalizeEmail(user.Email)
	if owner, taken := s.byEmail[email]; taken && owner != user.ID {
		return oops.Code("USER_EMAIL_TAKEN").With("email", email).Wrap(errutil.ErrConflict)
	}
	delete(s.byEmail, auth.NormalizeEmail(prev.Email))
	s.byID[user.ID] = *user
	s.byEmail[email] = user.ID
	return nil
}

// Delete implements auth.UserRepository.
func (s *UserStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return notFound(id.String())
	}
	delete(s.byID, id)
	delete(s.byEmail, auth.NormalizeEmail(u.Email))
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// PlainHasher is a fast reversible auth.PasswordHasher for tests that do not
// exercise hashing itself.
type PlainHasher struct{}

var _ auth.PasswordHasher = PlainHasher{}

const plainPrefix = "plain$"

// Hash implements auth.PasswordHasher.
func (PlainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return plainPrefix + password, nil
}

// Verify implements auth.PasswordHasher.
func (PlainHasher) Verify(password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, plainPrefix) {
		// The service verifies unknown users against an argon2id dummy hash.
		if strings.HasPrefix(hash, "$argon2id$") {
			return false, nil
		}
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("not a plain hash")
	}
	return strings.TrimPrefix(hash, plainPrefix) == password, nil
}

// NeedsUpgrade implements auth.PasswordHasher.
func (PlainHasher) NeedsUpgrade(string) bool { return false }
