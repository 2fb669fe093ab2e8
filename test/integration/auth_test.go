// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

type profileBody struct {
	Message string `json:"message"`
	User    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

var _ = Describe("Session authentication", func() {
	var (
		ctx context.Context
		c   *client
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)
		c = newClient()
	})

	register := func(name, email, password string) int {
		return c.do(http.MethodPost, "/auth/register",
			map[string]string{"name": name, "email": email, "password": password}, nil)
	}

	sessionToken := func() string {
		u, err := url.Parse(env.server.URL)
		Expect(err).NotTo(HaveOccurred())
		for _, ck := range c.http.Jar.Cookies(u) {
			if ck.Name == "auth-token" {
				return ck.Value
			}
		}
		return ""
	}

	Describe("register, login, me and logout", func() {
		It("runs the full session lifecycle", func() {
			var reg profileBody
			status := c.do(http.MethodPost, "/auth/register",
				map[string]string{"name": "Alice Smith", "email": "Alice@Example.com", "password": "secret123"}, &reg)
			Expect(status).To(Equal(http.StatusOK))
			Expect(reg.Message).To(Equal("User registered successfully"))
			Expect(reg.User.Email).To(Equal("alice@example.com"))
			Expect(reg.User.Role).To(Equal("user"))

			var me profileBody
			Expect(c.do(http.MethodGet, "/auth/me", nil, &me)).To(Equal(http.StatusUnauthorized))

			c.login("alice@example.com", "secret123")
			token := sessionToken()
			Expect(token).NotTo(BeEmpty())

			Expect(c.do(http.MethodGet, "/auth/me", nil, &me)).To(Equal(http.StatusOK))
			Expect(me.User.ID).To(Equal(reg.User.ID))
			Expect(me.User.Name).To(Equal("Alice Smith"))

			Expect(c.do(http.MethodPost, "/auth/logout", nil, nil)).To(Equal(http.StatusOK))
			Expect(sessionToken()).To(BeEmpty())

			// The old token is revoked even when presented as a bearer token.
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/auth/me", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("stores the password as an argon2id hash", func() {
			Expect(register("Bob Jones", "bob@example.com", "secret123")).To(Equal(http.StatusOK))

			var hash string
			err := env.pool.QueryRow(ctx, "SELECT password_hash FROM users WHERE email = $1", "bob@example.com").Scan(&hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(HavePrefix("$argon2id$"))
		})
	})

	Describe("failures", func() {
		It("rejects a duplicate registration", func() {
			Expect(register("Alice Smith", "alice@example.com", "secret123")).To(Equal(http.StatusOK))

			var body errorResponse
			status := c.do(http.MethodPost, "/auth/register",
				map[string]string{"name": "Alice Again", "email": "ALICE@example.com", "password": "secret456"}, &body)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body.Error).To(Equal("User already exists"))
		})

		It("rejects a wrong password without revealing which field was wrong", func() {
			Expect(register("Alice Smith", "alice@example.com", "secret123")).To(Equal(http.StatusOK))

			var wrongPassword, unknownUser errorResponse
			Expect(c.do(http.MethodPost, "/auth/login",
				map[string]string{"email": "alice@example.com", "password": "nope123"}, &wrongPassword),
			).To(Equal(http.StatusUnauthorized))
			Expect(c.do(http.MethodPost, "/auth/login",
				map[string]string{"email": "nobody@example.com", "password": "nope123"}, &unknownUser),
			).To(Equal(http.StatusUnauthorized))
			Expect(wrongPassword.Error).To(Equal(unknownUser.Error))
		})
	})

	Describe("route guard", func() {
		It("redirects UI routes by session state", func() {
			resp, err := c.http.Get(env.server.URL + "/dashboard")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusTemporaryRedirect))
			Expect(resp.Header.Get("Location")).To(Equal("/login"))

			Expect(register("Alice Smith", "alice@example.com", "secret123")).To(Equal(http.StatusOK))
			c.login("alice@example.com", "secret123")

			// With a session the guard lets the UI route through; no web
			// build is mounted so the router answers 404.
			resp, err = c.http.Get(env.server.URL + "/dashboard")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp, err = c.http.Get(env.server.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusTemporaryRedirect))
			Expect(resp.Header.Get("Location")).To(Equal("/dashboard"))
		})
	})
})
