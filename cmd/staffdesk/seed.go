// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/auth"
	authpg "github.com/staffdesk/staffdesk/internal/auth/postgres"
	"github.com/staffdesk/staffdesk/internal/seed"
	"github.com/staffdesk/staffdesk/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file    string
	timeout time.Duration
	dryRun  bool
}

// userCreatorFactory builds the account creator seeding writes through.
// Replaced in tests.
var userCreatorFactory = func(ctx context.Context, url string, logger *slog.Logger) (seed.UserCreator, func(), error) {
	pool, err := store.Connect(ctx, url, &store.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	// Seeding never issues tokens; the service still requires a token
	// service, so it gets one with a throwaway key.
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		pool.Close()
		return nil, nil, err
	}
	tokens, err := auth.NewTokenService(key, time.Minute)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	svc, err := auth.NewService(authpg.NewUserRepository(pool), auth.NewArgon2idHasher(), tokens, auth.WithLogger(logger))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create initial accounts from a seed file",
		Long: `Creates the accounts listed in a YAML seed file, such as the first
administrator. The file is validated against the schema printed by
'staffdesk schema'. Accounts whose email already exists are skipped, so the
command is idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.file, "file", "f", "seed.yaml", "seed file path")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "validate the seed file without touching the database")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	f, err := seed.LoadFile(cfg.file)
	if err != nil {
		return err
	}
	if cfg.dryRun {
		cmd.Printf("Seed file is valid: %d user(s)\n", len(f.Users))
		return nil
	}

	url, err := databaseURL(cmd)
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	logger := slog.Default()
	cmd.Println("Connecting to database...")
	users, closeFn, err := userCreatorFactory(ctx, url, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer closeFn()

	res, err := seed.Apply(ctx, users, f, logger)
	if res != nil {
		for _, email := range res.Created {
			cmd.Println("Created user: " + email)
		}
		for _, email := range res.Skipped {
			cmd.Println("User already exists, skipping: " + email)
		}
	}
	if err != nil {
		return err
	}

	cmd.Println("Seeding complete!")
	return nil
}
