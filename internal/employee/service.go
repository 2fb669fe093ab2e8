// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package employee

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/validation"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// Service implements the employee directory operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("EMPLOYEE_INVALID_SERVICE").Errorf("employee repository is required")
	}
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func notFound(id ulid.ULID) error {
	return oops.Code("EMPLOYEE_NOT_FOUND").
		With("employee_id", id.String()).
		Public("Employee not found").
		Wrap(errutil.ErrNotFound)
}

func alreadyExists(email string) error {
	return oops.Code("EMPLOYEE_EXISTS").
		With("email", email).
		Public("Employee already exists").
		Wrap(errutil.ErrConflict)
}

// List returns the employees matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]*Employee, error) {
	f.Q = strings.TrimSpace(f.Q)
	f.Department = strings.TrimSpace(f.Department)
	if err := validation.Struct(f); err != nil {
		return nil, err
	}

	employees, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, oops.Code("EMPLOYEE_LIST_FAILED").Wrap(err)
	}
	return employees, nil
}

// Get returns the employee with the given id.
func (s *Service) Get(ctx context.Context, rawID string) (*Employee, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id ulid.ULID) (*Employee, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errutil.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, oops.Code("EMPLOYEE_GET_FAILED").With("employee_id", id.String()).Wrap(err)
	}
	return e, nil
}

// Create validates in and stores a new employee.
func (s *Service) Create(ctx context.Context, in Input) (*Employee, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}

	now := s.now().UTC()
	e := &Employee{
		ID:               ulid.Make(),
		Code:             strings.TrimSpace(in.Code),
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Email:            NormalizeEmail(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		Position:         strings.TrimSpace(in.Position),
		Department:       strings.TrimSpace(in.Department),
		Salary:           in.Salary.Round(2),
		HireDate:         in.HireDate,
		BirthDate:        in.BirthDate,
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: in.EmergencyContact,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, errutil.ErrConflict) {
			return nil, alreadyExists(e.Email)
		}
		return nil, oops.Code("EMPLOYEE_CREATE_FAILED").Wrap(err)
	}

	s.logger.InfoContext(ctx, "employee created", "employee_id", e.ID.String())
	return e, nil
}

// Update applies p to the employee with the given id.
func (s *Service) Update(ctx context.Context, rawID string, p Patch) (*Employee, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return e, nil
	}

	p.Apply(e)
	e.Salary = e.Salary.Round(2)
	e.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, e); err != nil {
		switch {
		case errors.Is(err, errutil.ErrNotFound):
			return nil, notFound(id)
		case errors.Is(err, errutil.ErrConflict):
			return nil, alreadyExists(e.Email)
		}
		return nil, oops.Code("EMPLOYEE_UPDATE_FAILED").With("employee_id", id.String()).Wrap(err)
	}

	s.logger.InfoContext(ctx, "employee updated", "employee_id", id.String())
	return e, nil
}

// Delete removes the employee with the given id.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, errutil.ErrNotFound) {
			return notFound(id)
		}
		return oops.Code("EMPLOYEE_DELETE_FAILED").With("employee_id", id.String()).Wrap(err)
	}
	s.logger.InfoContext(ctx, "employee deleted", "employee_id", id.String())
	return nil
}
