// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

//go:build integration

// Package integration provides end-to-end tests for StaffDesk against real
// PostgreSQL and Redis containers.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	authpg "github.com/staffdesk/staffdesk/internal/auth/postgres"
	authredis "github.com/staffdesk/staffdesk/internal/auth/redis"
	"github.com/staffdesk/staffdesk/internal/employee"
	employeepg "github.com/staffdesk/staffdesk/internal/employee/postgres"
	"github.com/staffdesk/staffdesk/internal/store"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

type testEnv struct {
	ctx      context.Context
	pool     *pgxpool.Pool
	rdb      *goredis.Client
	postgres *postgres.PostgresContainer
	redis    *tcredis.RedisContainer
	server   *httptest.Server
	authSvc  *auth.Service
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()
	e := &testEnv{ctx: ctx}

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("staffdesk_test"),
		postgres.WithUsername("staffdesk"),
		postgres.WithPassword("staffdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}
	e.postgres = pg

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		e.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		e.cleanup()
		return nil, err
	}
	err = migrator.Up()
	_ = migrator.Close()
	if err != nil {
		e.cleanup()
		return nil, err
	}

	if e.pool, err = store.Connect(ctx, connStr, &store.ConnectOptions{Timeout: 20 * time.Second}); err != nil {
		e.cleanup()
		return nil, err
	}

	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		e.cleanup()
		return nil, err
	}
	e.redis = rc

	redisURL, err := rc.ConnectionString(ctx)
	if err != nil {
		e.cleanup()
		return nil, err
	}
	if e.rdb, err = authredis.NewClient(ctx, redisURL); err != nil {
		e.cleanup()
		return nil, err
	}

	handler, err := e.buildHandler()
	if err != nil {
		e.cleanup()
		return nil, err
	}
	e.server = httptest.NewServer(handler)
	return e, nil
}

func (e *testEnv) buildHandler() (http.Handler, error) {
	logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))

	tokens, err := auth.NewTokenService(
		[]byte("integration-secret-0123456789abcdef"),
		time.Hour,
		auth.WithDenylist(authredis.NewDenylist(e.rdb)),
	)
	if err != nil {
		return nil, err
	}

	e.authSvc, err = auth.NewService(authpg.NewUserRepository(e.pool), auth.NewArgon2idHasher(), tokens,
		auth.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	employees, err := employee.NewService(employeepg.NewRepository(e.pool), employee.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	guard, err := api.NewGuard(tokens, api.GuardConfig{
		LandingPath: "/dashboard",
		LoginPath:   "/login",
		CookieName:  "auth-token",
	}, api.WithGuardLogger(logger))
	if err != nil {
		return nil, err
	}

	return api.NewRouter(api.Deps{
		Auth:      e.authSvc,
		Employees: employees,
		Guard:     guard,
		Logger:    logger,
		Config: api.RouterConfig{
			Cookie: api.SessionCookie{
				Name:     "auth-token",
				Path:     "/",
				SameSite: http.SameSiteStrictMode,
			},
		},
	})
}

func (e *testEnv) cleanup() {
	if e.server != nil {
		e.server.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.redis != nil {
		_ = e.redis.Terminate(e.ctx)
	}
	if e.postgres != nil {
		_ = e.postgres.Terminate(e.ctx)
	}
}

// cleanupDatabase removes all rows so each test starts empty.
func cleanupDatabase(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, "TRUNCATE employees, users")
	Expect(err).NotTo(HaveOccurred())
}

// client is a browser-like HTTP client with its own cookie jar that does
// not follow redirects.
type client struct {
	http *http.Client
	base string
}

func newClient() *client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &client{
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		base: env.server.URL,
	}
}

// do sends body as JSON (when non-nil) and decodes the response into out
// (when non-nil). It returns the status code.
func (c *client) do(method, path string, body, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, c.base+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
	}
	return resp.StatusCode
}

func (c *client) login(email, password string) {
	status := c.do(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	Expect(status).To(Equal(http.StatusOK))
}
