// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package employee

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// Status is an employee's employment state.
type Status string

// Employment states.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusOnLeave  Status = "on_leave"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusOnLeave:
		return true
	default:
		return false
	}
}

// EmergencyContact is the person to call for an employee.
type EmergencyContact struct {
	Name         string `json:"name" validate:"required,min=2"`
	Phone        string `json:"phone" validate:"required,phone"`
	Relationship string `json:"relationship" validate:"required,min=2"`
}

// Employee is a staff record.
type Employee struct {
	ID               ulid.ULID        `json:"id"`
	Code             string           `json:"employeeId,omitempty"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Position         string           `json:"position"`
	Department       string           `json:"department"`
	Salary           decimal.Decimal  `json:"salary"`
	HireDate         Date             `json:"hireDate"`
	BirthDate        Date             `json:"birthDate"`
	Address          string           `json:"address"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Status           Status           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Input is the payload for creating an employee.
type Input struct {
	Code             string           `json:"employeeId" validate:"omitempty,max=32"`
	FirstName        string           `json:"firstName" validate:"required,min=2,max=100"`
	LastName         string           `json:"lastName" validate:"required,min=2,max=100"`
	Email            string           `json:"email" validate:"required,email,max=254"`
	Phone            string           `json:"phone" validate:"required,phone"`
	Position         string           `json:"position" validate:"required,min=2"`
	Department       string           `json:"department" validate:"required,min=2"`
	Salary           decimal.Decimal  `json:"salary" validate:"gte=0"`
	HireDate         Date             `json:"hireDate" validate:"required,notfuture"`
	BirthDate        Date             `json:"birthDate" validate:"required,workage"`
	Address          string           `json:"address" validate:"required,min=10"`
	EmergencyContact EmergencyContact `json:"emergencyContact" validate:"required"`
	Status           Status           `json:"status" validate:"omitempty,oneof=active inactive on_leave"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Code             *string           `json:"employeeId" validate:"omitempty,max=32"`
	FirstName        *string           `json:"firstName" validate:"omitempty,min=2,max=100"`
	LastName         *string           `json:"lastName" validate:"omitempty,min=2,max=100"`
	Email            *string           `json:"email" validate:"omitempty,email,max=254"`
	Phone            *string           `json:"phone" validate:"omitempty,phone"`
	Position         *string           `json:"position" validate:"omitempty,min=2"`
	Department       *string           `json:"department" validate:"omitempty,min=2"`
	Salary           *decimal.Decimal  `json:"salary" validate:"omitempty,gte=0"`
	HireDate         *Date             `json:"hireDate" validate:"omitempty,notfuture"`
	BirthDate        *Date             `json:"birthDate" validate:"omitempty,workage"`
	Address          *string           `json:"address" validate:"omitempty,min=10"`
	EmergencyContact *EmergencyContact `json:"emergencyContact" validate:"omitempty"`
	Status           *Status           `json:"status" validate:"omitempty,oneof=active inactive on_leave"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return *p == Patch{}
}

// Apply copies the set fields of p onto e.
func (p *Patch) Apply(e *Employee) {
	setString(&e.Code, p.Code)
	setString(&e.FirstName, p.FirstName)
	setString(&e.LastName, p.LastName)
	if p.Email != nil {
		e.Email = NormalizeEmail(*p.Email)
	}
	setString(&e.Phone, p.Phone)
	setString(&e.Position, p.Position)
	setString(&e.Department, p.Department)
	if p.Salary != nil {
		e.Salary = *p.Salary
	}
	if p.HireDate != nil {
		e.HireDate = *p.HireDate
	}
	if p.BirthDate != nil {
		e.BirthDate = *p.BirthDate
	}
	setString(&e.Address, p.Address)
	if p.EmergencyContact != nil {
		e.EmergencyContact = *p.EmergencyContact
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// NormalizeEmail trims and lower-cases an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	// Q matches a substring of the name, email or position.
	Q          string `json:"q" validate:"max=100"`
	Department string `json:"department" validate:"max=100"`
	Status     Status `json:"status" validate:"omitempty,oneof=active inactive on_leave"`
}

// ParseID parses an employee id from a URL.
func ParseID(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("EMPLOYEE_INVALID_ID").
			With("id", s).
			Public("Invalid employee id").
			Wrap(errutil.ErrValidation)
	}
	return id, nil
}

// Repository persists employees.
type Repository interface {
	// List returns employees matching f, ordered by last then first name.
	List(ctx context.Context, f Filter) ([]*Employee, error)

	// GetByID returns an error wrapping errutil.ErrNotFound when absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Employee, error)

	// Create returns an error wrapping errutil.ErrConflict when the email
	// or code is taken.
	Create(ctx context.Context, e *Employee) error

	// Update replaces the stored record.
	Update(ctx context.Context, e *Employee) error

	// Delete removes the record.
	Delete(ctx context.Context, id ulid.ULID) error
}
