// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	authpg "github.com/staffdesk/staffdesk/internal/auth/postgres"
	authredis "github.com/staffdesk/staffdesk/internal/auth/redis"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/employee"
	employeepg "github.com/staffdesk/staffdesk/internal/employee/postgres"
	"github.com/staffdesk/staffdesk/internal/logging"
	"github.com/staffdesk/staffdesk/internal/observability"
	"github.com/staffdesk/staffdesk/internal/store"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// serveFlagKeys maps serve flags to config keys.
var serveFlagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "metrics.addr",
	"web-dir":      "server.web_dir",
	"env":          "env",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"migrate":      "database.auto_migrate",
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the StaffDesk HTTP server: the auth endpoints, the employee API
behind the route guard, and the dashboard build when a web dir is set.
Metrics and health probes are served on a separate listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("addr", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("web-dir", "", "directory with the dashboard build")
	cmd.Flags().String("env", defaults.Env, "environment (development, production or test)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().Bool("migrate", false, "apply pending migrations before serving")

	return cmd
}

func (d *ServeDeps) withDefaults(cmd *cobra.Command) {
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = func(ctx context.Context, url string, opts *store.ConnectOptions) (Database, error) {
			return store.Connect(ctx, url, opts)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (SchemaMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if d.RedisFactory == nil {
		d.RedisFactory = func(ctx context.Context, url string) (goredis.Cmdable, io.Closer, error) {
			client, err := authredis.NewClient(ctx, url)
			if err != nil {
				return nil, nil, err
			}
			return client, client, nil
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	if d.LogWriter == nil {
		d.LogWriter = cmd.ErrOrStderr()
	}
}

// runServeWithDeps starts the server with injectable dependencies and blocks
// until ctx is cancelled or a listener fails. If deps is nil, default
// implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.withDefaults(cmd)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.SetDefault(logging.Options{
		Service: "staffdesk",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, deps.LogWriter)
	if err != nil {
		return oops.Code("LOGGING_SETUP_FAILED").Wrap(err)
	}

	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "warning", w)
	}
	logger.Info("starting staffdesk",
		"version", version,
		"env", cfg.Env,
		"addr", cfg.Server.Addr,
		"revocation", cfg.Auth.Revocation,
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, &store.ConnectOptions{
		Timeout:  cfg.Database.ConnectTimeout,
		MaxConns: cfg.Database.MaxConns,
		Logger:   logger,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("error closing resource", "error", err)
			}
		}
	}()

	var tokenOpts []auth.TokenOption
	switch cfg.Auth.Revocation {
	case config.RevocationMemory:
		denylist := auth.NewMemoryDenylist(time.Minute)
		closers = append(closers, denylist)
		tokenOpts = append(tokenOpts, auth.WithDenylist(denylist))
	case config.RevocationRedis:
		rdb, closer, err := deps.RedisFactory(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		closers = append(closers, closer)
		tokenOpts = append(tokenOpts, auth.WithDenylist(authredis.NewDenylist(rdb, authredis.WithKeyPrefix(cfg.Redis.KeyPrefix))))
		logger.Info("token revocation enabled", "backend", "redis")
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, tokenOpts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Readiness follows the database.
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, db.Ping, logger)
	}

	handler, err := buildHandler(cfg, db, tokens, obsServer, logger)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer stopCancel()
			if err := obsServer.Stop(stopCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Println("StaffDesk listening on " + listener.Addr().String())
	logger.Info("http server listening", "addr", listener.Addr().String())

	var serveErr error
	select {
	case err := <-errChan:
		serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}

	logger.Info("http server stopped")
	return serveErr
}

// buildHandler wires repositories, services and the router. obs may be nil.
func buildHandler(cfg *config.Config, db store.DB, tokens *auth.TokenService, obs ObservabilityServer, logger *slog.Logger) (http.Handler, error) {
	var (
		serviceOpts = []auth.ServiceOption{auth.WithLogger(logger)}
		guardOpts   = []api.GuardOption{api.WithGuardLogger(logger)}
		observer    api.RequestObserver
	)
	if obs != nil {
		metrics := obs.Metrics()
		serviceOpts = append(serviceOpts, auth.WithLoginRecorder(metrics))
		guardOpts = append(guardOpts, api.WithTokenRecorder(metrics))
		observer = metrics
	}

	authSvc, err := auth.NewService(authpg.NewUserRepository(db), auth.NewArgon2idHasher(), tokens, serviceOpts...)
	if err != nil {
		return nil, err
	}
	employees, err := employee.NewService(employeepg.NewRepository(db), employee.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	guard, err := api.NewGuard(tokens, api.GuardConfig{
		PublicPaths: cfg.Auth.PublicPaths,
		LandingPath: cfg.Auth.LandingPath,
		LoginPath:   cfg.Auth.LoginPath,
		CookieName:  cfg.Auth.CookieName,
	}, guardOpts...)
	if err != nil {
		return nil, err
	}

	sameSite, ok := api.ParseSameSite(cfg.Auth.SameSite)
	if !ok {
		return nil, oops.Code("CONFIG_INVALID").
			With("same_site", cfg.Auth.SameSite).
			Wrapf(errutil.ErrConfiguration, "unknown same_site mode")
	}

	return api.NewRouter(api.Deps{
		Auth:      authSvc,
		Employees: employees,
		Guard:     guard,
		Observer:  observer,
		Logger:    logger,
		Config: api.RouterConfig{
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			TrustedProxies:    cfg.Server.TrustedProxies,
			AuthRatePerMinute: cfg.RateLimit.AuthPerMinute,
			WebDir:            cfg.Server.WebDir,
			TokenInBody:       cfg.Auth.TokenInBody,
			Cookie: api.SessionCookie{
				Name:     cfg.Auth.CookieName,
				Path:     "/",
				Secure:   cfg.IsProduction(),
				SameSite: sameSite,
			},
		},
	})
}

func autoMigrate(url string, factory func(string) (SchemaMigrator, error), logger *slog.Logger) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
