// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

//go:build integration

package integration

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/staffdesk/staffdesk/internal/auth"
)

type employeeBody struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Position   string `json:"position"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

func newEmployee(email, department string) map[string]any {
	return map[string]any{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"email":      email,
		"phone":      "+44 20 7946 0000",
		"position":   "Engineer",
		"department": department,
		"salary":     5200.5,
		"hireDate":   "2020-01-15",
		"birthDate":  time.Now().AddDate(-30, 0, 0).Format("2006-01-02"),
		"address":    "12 St James's Square, London",
		"emergencyContact": map[string]string{
			"name": "Mary Somerville", "phone": "+44 20 7946 0001", "relationship": "Mentor",
		},
	}
}

var _ = Describe("Employee API", func() {
	var (
		ctx   context.Context
		staff *client
		admin *client
	)

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)

		_, err := env.authSvc.CreateUser(ctx, auth.RegisterInput{
			Name: "Staff Member", Email: "staff@example.com", Password: "staff123",
		}, auth.RoleUser)
		Expect(err).NotTo(HaveOccurred())
		_, err = env.authSvc.CreateUser(ctx, auth.RegisterInput{
			Name: "Administrator", Email: "admin@example.com", Password: "admin123",
		}, auth.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())

		staff = newClient()
		staff.login("staff@example.com", "staff123")
		admin = newClient()
		admin.login("admin@example.com", "admin123")
	})

	It("requires a session", func() {
		var body errorResponse
		Expect(newClient().do(http.MethodGet, "/api/employees", nil, &body)).To(Equal(http.StatusUnauthorized))
		Expect(body.Error).NotTo(BeEmpty())
	})

	It("creates, reads, updates and lists employees", func() {
		var created employeeBody
		Expect(staff.do(http.MethodPost, "/api/employees", newEmployee("Ada@Example.com", "Research"), &created)).
			To(Equal(http.StatusCreated))
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.Email).To(Equal("ada@example.com"))
		Expect(created.Status).To(Equal("active"))

		var fetched employeeBody
		Expect(staff.do(http.MethodGet, "/api/employees/"+created.ID, nil, &fetched)).To(Equal(http.StatusOK))
		Expect(fetched).To(Equal(created))

		var updated employeeBody
		Expect(staff.do(http.MethodPatch, "/api/employees/"+created.ID,
			map[string]any{"position": "Lead Engineer", "status": "on_leave"}, &updated),
		).To(Equal(http.StatusOK))
		Expect(updated.Position).To(Equal("Lead Engineer"))
		Expect(updated.Status).To(Equal("on_leave"))
		Expect(updated.FirstName).To(Equal("Ada"))

		var second employeeBody
		Expect(staff.do(http.MethodPost, "/api/employees", newEmployee("grace@example.com", "Operations"), &second)).
			To(Equal(http.StatusCreated))

		var all []employeeBody
		Expect(staff.do(http.MethodGet, "/api/employees", nil, &all)).To(Equal(http.StatusOK))
		Expect(all).To(HaveLen(2))

		var research []employeeBody
		Expect(staff.do(http.MethodGet, "/api/employees?department=Research", nil, &research)).To(Equal(http.StatusOK))
		Expect(research).To(HaveLen(1))
		Expect(research[0].ID).To(Equal(created.ID))

		var onLeave []employeeBody
		Expect(staff.do(http.MethodGet, "/api/employees?status=on_leave", nil, &onLeave)).To(Equal(http.StatusOK))
		Expect(onLeave).To(HaveLen(1))
	})

	It("rejects a duplicate email", func() {
		Expect(staff.do(http.MethodPost, "/api/employees", newEmployee("ada@example.com", "Research"), nil)).
			To(Equal(http.StatusCreated))

		var body errorResponse
		Expect(staff.do(http.MethodPost, "/api/employees", newEmployee("ADA@example.com", "Research"), &body)).
			To(Equal(http.StatusBadRequest))
		Expect(body.Error).To(Equal("Employee already exists"))
	})

	It("rejects invalid input with field details", func() {
		payload := newEmployee("not-an-email", "Research")
		payload["firstName"] = "A"

		var body errorResponse
		Expect(staff.do(http.MethodPost, "/api/employees", payload, &body)).To(Equal(http.StatusBadRequest))
		Expect(body.Details).To(HaveKey("email"))
		Expect(body.Details).To(HaveKey("firstName"))
	})

	It("lets only admins delete", func() {
		var created employeeBody
		Expect(staff.do(http.MethodPost, "/api/employees", newEmployee("ada@example.com", "Research"), &created)).
			To(Equal(http.StatusCreated))

		Expect(staff.do(http.MethodDelete, "/api/employees/"+created.ID, nil, nil)).To(Equal(http.StatusForbidden))
		Expect(admin.do(http.MethodDelete, "/api/employees/"+created.ID, nil, nil)).To(Equal(http.StatusOK))

		var body errorResponse
		Expect(staff.do(http.MethodGet, "/api/employees/"+created.ID, nil, &body)).To(Equal(http.StatusNotFound))
		Expect(body.Error).To(Equal("Employee not found"))
	})
})
