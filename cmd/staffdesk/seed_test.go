// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/auth/authtest"
	"github.com/staffdesk/staffdesk/internal/seed"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

const seedYAML = `
users:
  - email: admin@company.com
    name: Administrator
    password: admin123
    role: admin
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// useMemoryUsers swaps userCreatorFactory for an in-memory auth service.
func useMemoryUsers(t *testing.T) (*authtest.UserStore, *bool) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	users := authtest.NewUserStore()
	closed := false
	orig := userCreatorFactory
	userCreatorFactory = func(_ context.Context, _ string, logger *slog.Logger) (seed.UserCreator, func(), error) {
		tokens, err := auth.NewTokenService([]byte("seed-test-secret"), time.Minute)
		if err != nil {
			return nil, nil, err
		}
		svc, err := auth.NewService(users, authtest.PlainHasher{}, tokens, auth.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return svc, func() { closed = true }, nil
	}
	t.Cleanup(func() { userCreatorFactory = orig })
	return users, &closed
}

func TestSeedCommand_CreatesUsers(t *testing.T) {
	users, closed := useMemoryUsers(t)
	path := writeSeed(t, seedYAML)

	out, err := execute(t, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created user: admin@company.com")
	assert.Contains(t, out, "Seeding complete!")
	assert.True(t, *closed)

	admin, err := users.GetByEmail(context.Background(), "admin@company.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, admin.Role)

	out, err = execute(t, "seed", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "User already exists, skipping: admin@company.com")
	assert.Equal(t, 1, users.Len())
}

func TestSeedCommand_DryRun(t *testing.T) {
	users, _ := useMemoryUsers(t)
	t.Setenv("DATABASE_URL", "")
	path := writeSeed(t, seedYAML)

	out, err := execute(t, "seed", "--file", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Seed file is valid: 1 user(s)")
	assert.Equal(t, 0, users.Len())
}

func TestSeedCommand_InvalidFile(t *testing.T) {
	useMemoryUsers(t)
	path := writeSeed(t, "users:\n  - email: a@x.com\n")

	_, err := execute(t, "seed", "--file", path)
	errutil.AssertErrorCode(t, err, "SEED_INVALID")
}

func TestSeedCommand_ConnectFailure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	orig := userCreatorFactory
	userCreatorFactory = func(context.Context, string, *slog.Logger) (seed.UserCreator, func(), error) {
		return nil, nil, errors.New("connection refused")
	}
	t.Cleanup(func() { userCreatorFactory = orig })

	_, err := execute(t, "seed", "--file", writeSeed(t, seedYAML))
	errutil.AssertErrorContext(t, err, "operation", "connect to database")
}

func TestSeedCommand_Flags(t *testing.T) {
	cmd := NewSeedCmd()

	file, err := cmd.Flags().GetString("file")
	require.NoError(t, err)
	assert.Equal(t, "seed.yaml", file)

	timeout, err := cmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, defaultSeedTimeout, timeout)
}
