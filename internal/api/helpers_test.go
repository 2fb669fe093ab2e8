// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/auth/authtest"
	"github.com/staffdesk/staffdesk/internal/employee"
	"github.com/staffdesk/staffdesk/internal/employee/employeetest"
)

var testSecret = []byte("api-test-secret-0123456789abcdef")

type tokenCounter struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *tokenCounter) RecordTokenVerification(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func (c *tokenCounter) count(result string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[result]
}

type server struct {
	handler   http.Handler
	authSvc   *auth.Service
	tokens    *auth.TokenService
	employees *employeetest.Store
	counter   *tokenCounter
}

type serverOption func(*api.RouterConfig, *[]auth.TokenOption)

func withRouterConfig(fn func(*api.RouterConfig)) serverOption {
	return func(c *api.RouterConfig, _ *[]auth.TokenOption) { fn(c) }
}

func withTokenOptions(opts ...auth.TokenOption) serverOption {
	return func(_ *api.RouterConfig, t *[]auth.TokenOption) { *t = append(*t, opts...) }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, opts ...serverOption) *server {
	t.Helper()

	cfg := api.RouterConfig{Cookie: api.DefaultSessionCookie()}
	var tokenOpts []auth.TokenOption
	for _, opt := range opts {
		opt(&cfg, &tokenOpts)
	}

	tokens, err := auth.NewTokenService(testSecret, time.Hour, tokenOpts...)
	require.NoError(t, err)

	authSvc, err := auth.NewService(authtest.NewUserStore(), authtest.PlainHasher{}, tokens, auth.WithLogger(quietLogger()))
	require.NoError(t, err)

	store := employeetest.NewStore()
	empSvc, err := employee.NewService(store, employee.WithLogger(quietLogger()))
	require.NoError(t, err)

	counter := &tokenCounter{}
	guard, err := api.NewGuard(tokens, api.GuardConfig{}, api.WithTokenRecorder(counter), api.WithGuardLogger(quietLogger()))
	require.NoError(t, err)

	h, err := api.NewRouter(api.Deps{
		Auth:      authSvc,
		Employees: empSvc,
		Guard:     guard,
		Logger:    quietLogger(),
		Config:    cfg,
	})
	require.NoError(t, err)

	return &server{handler: h, authSvc: authSvc, tokens: tokens, employees: store, counter: counter}
}

type request struct {
	method string
	path   string
	body   any
	cookie string
	bearer string
	// remoteAddr overrides the socket peer; header adds request headers.
	remoteAddr string
	header     map[string]string
}

func (s *server) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch b := req.body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.cookie != "" {
		r.AddCookie(&http.Cookie{Name: api.DefaultCookieName, Value: req.cookie})
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	if req.remoteAddr != "" {
		r.RemoteAddr = req.remoteAddr
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == api.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", api.DefaultCookieName)
	return nil
}

// login registers email with the given role and returns a session token.
func (s *server) login(t *testing.T, email string, role auth.Role) string {
	t.Helper()
	_, err := s.authSvc.CreateUser(context.Background(), auth.RegisterInput{
		Name: "Test User", Email: email, Password: "secret1",
	}, role)
	require.NoError(t, err)

	res, err := s.authSvc.Login(context.Background(), auth.LoginInput{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.Token
}
