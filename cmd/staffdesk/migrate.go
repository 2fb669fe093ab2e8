// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/store"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// migrationRunner is the part of *store.Migrator the migrate commands use.
type migrationRunner interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(url string) (migrationRunner, error) {
	return store.NewMigrator(url)
}

var dbFlagKeys = map[string]string{"database-url": "database.url"}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back and inspect the embedded PostgreSQL schema migrations.
The database URL comes from --database-url, the config file, or DATABASE_URL.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateForceCmd())
	cmd.AddCommand(newMigrateListCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrationRunner) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var (
		steps int
		all   bool
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the last --steps migrations (default 1). --all rolls back every
migration and drops all data; it requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all && !yes {
				return oops.Code("MIGRATION_CONFIRM_REQUIRED").
					Wrapf(errutil.ErrValidation, "--all drops every table; pass --yes to confirm")
			}
			if !all && steps < 1 {
				return oops.Code("MIGRATION_INVALID_STEPS").
					With("steps", steps).
					Wrapf(errutil.ErrValidation, "--steps must be at least 1")
			}
			return withMigrator(cmd, func(m migrationRunner) error {
				var err error
				if all {
					cmd.Println("Rolling back all migrations...")
					err = m.Down()
				} else {
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					err = m.Steps(-steps)
				}
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm --all")
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrationRunner) error {
				st, err := m.Status()
				if err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "status").Wrap(err)
				}
				cmd.Printf("Version: %d\n", st.Version)
				if st.Dirty {
					cmd.Println("WARNING: database is dirty; fix the schema and run 'migrate force'")
				}
				for _, mig := range st.Applied {
					cmd.Printf("  [applied] %s\n", mig.Name)
				}
				for _, mig := range st.Pending {
					cmd.Printf("  [pending] %s\n", mig.Name)
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Record VERSION as the current schema version and clear the dirty flag.
Use it only after repairing a migration that failed midway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("INVALID_VERSION").
					With("version", args[0]).
					Wrapf(errutil.ErrValidation, "version must be an integer")
			}
			return withMigrator(cmd, func(m migrationRunner) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force").Wrap(err)
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the embedded migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := store.Migrations()
			if err != nil {
				return err
			}
			for _, mig := range all {
				cmd.Printf("%06d  %s\n", mig.Version, mig.Name)
			}
			return nil
		},
	}
}

// databaseURL resolves the database URL from flags, config and environment.
func databaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd, dbFlagKeys)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Wrapf(errutil.ErrConfiguration, "database URL is required (--database-url or DATABASE_URL)")
	}
	return cfg.Database.URL, nil
}

func withMigrator(cmd *cobra.Command, fn func(migrationRunner) error) error {
	url, err := databaseURL(cmd)
	if err != nil {
		return err
	}
	m, err := newMigrator(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "connect").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("warning: closing migrator:", closeErr)
		}
	}()
	return fn(m)
}
