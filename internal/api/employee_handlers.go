// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/employee"
)

// EmployeeHandler serves /api/employees.
type EmployeeHandler struct {
	svc    *employee.Service
	logger *slog.Logger
}

// NewEmployeeHandler creates an EmployeeHandler.
func NewEmployeeHandler(svc *employee.Service, logger *slog.Logger) *EmployeeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeHandler{svc: svc, logger: logger}
}

// Routes mounts the handlers on r. Deleting requires the admin role.
func (h *EmployeeHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Patch("/", h.Update)
		r.With(RequireRole(h.logger, auth.RoleAdmin)).Delete("/", h.Delete)
	})
}

// List handles GET /api/employees.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employees, err := h.svc.List(r.Context(), employee.Filter{
		Q:          q.Get("q"),
		Department: q.Get("department"),
		Status:     employee.Status(q.Get("status")),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if employees == nil {
		employees = []*employee.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}

// Get handles GET /api/employees/{id}.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Create handles POST /api/employees.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := mustClaims(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var in employee.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "employee added", "employee_id", e.ID.String(), "actor", claims.Subject)
	writeJSON(w, http.StatusCreated, e)
}

// Update handles PUT and PATCH /api/employees/{id}. Both apply a partial update.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p employee.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	e, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/employees/{id}.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, err := mustClaims(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "employee removed", "employee_id", id, "actor", claims.Subject)
	writeJSON(w, http.StatusOK, messageBody{Message: "Employee deleted"})
}
