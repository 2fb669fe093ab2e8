// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/staffdesk/staffdesk/internal/observability"
	"github.com/staffdesk/staffdesk/internal/store"
)

// Database is the part of *pgxpool.Pool the server uses.
type Database interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// SchemaMigrator applies migrations.
type SchemaMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer serves metrics and health probes.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the PostgreSQL pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, opts *store.ConnectOptions) (Database, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (SchemaMigrator, error)

	// RedisFactory connects to Redis for the redis revocation backend.
	// Default: authredis.NewClient
	RedisFactory func(ctx context.Context, url string) (goredis.Cmdable, io.Closer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory creates the HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogWriter receives log output.
	// Default: the command's stderr
	LogWriter io.Writer
}
