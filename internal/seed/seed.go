// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package seed loads initial accounts from a YAML file and creates them.
package seed

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// File is the root of a seed file.
type File struct {
	Users []User `json:"users" yaml:"users" jsonschema:"required,minItems=1,description=Accounts to create"`
}

// User is one seeded account. Exactly one of Password and PasswordHash must
// be set. PasswordHash accepts argon2id and bcrypt hashes.
type User struct {
	Email        string `json:"email" yaml:"email" jsonschema:"required,minLength=3,maxLength=254"`
	Name         string `json:"name" yaml:"name" jsonschema:"required,minLength=2,maxLength=100"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty" jsonschema:"minLength=6,maxLength=72"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash,omitempty" jsonschema:"minLength=1"`
	Role         string `json:"role,omitempty" yaml:"role,omitempty" jsonschema:"enum=admin,enum=user,default=user"`
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_INVALID").Wrapf(errutil.ErrValidation, "decode seed file: %v", err)
	}

	for i, u := range f.Users {
		hasPassword := u.Password != ""
		hasHash := u.PasswordHash != ""
		if hasPassword == hasHash {
			return nil, oops.Code("SEED_INVALID").
				With("index", i).
				With("email", u.Email).
				Wrapf(errutil.ErrValidation, "users[%d]: exactly one of password or password_hash is required", i)
		}
	}
	return &f, nil
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	return Parse(data)
}

// UserCreator is the part of auth.Service that seeding needs.
type UserCreator interface {
	CreateUser(ctx context.Context, in auth.RegisterInput, role auth.Role) (*auth.User, error)
	ImportUser(ctx context.Context, email, name, passwordHash string, role auth.Role) (*auth.User, error)
}

// Result summarizes an Apply run.
type Result struct {
	Created []string
	Skipped []string
}

// Apply creates every user in f. Users whose email already exists are
// skipped, so running the same file twice is safe.
func Apply(ctx context.Context, users UserCreator, f *File, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{}
	for _, u := range f.Users {
		role := auth.RoleUser
		if u.Role != "" {
			r, err := auth.ParseRole(u.Role)
			if err != nil {
				return res, err
			}
			role = r
		}

		var err error
		if u.PasswordHash != "" {
			_, err = users.ImportUser(ctx, u.Email, u.Name, u.PasswordHash, role)
		} else {
			_, err = users.CreateUser(ctx, auth.RegisterInput{Name: u.Name, Email: u.Email, Password: u.Password}, role)
		}

		email := auth.NormalizeEmail(u.Email)
		switch {
		case err == nil:
			res.Created = append(res.Created, email)
			logger.InfoContext(ctx, "seeded user", "email", email, "role", string(role))
		case errors.Is(err, errutil.ErrConflict):
			res.Skipped = append(res.Skipped, email)
			logger.InfoContext(ctx, "seed user already exists, skipping", "email", email)
		default:
			return res, oops.Code("SEED_FAILED").With("email", email).Wrap(err)
		}
	}
	return res, nil
}
