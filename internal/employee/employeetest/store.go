// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package employeetest provides an in-memory employee.Repository.
package employeetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/employee"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// Store keeps employees in a map. Email and code uniqueness match the
// database indexes.
type Store struct {
	mu   sync.Mutex
	rows map[ulid.ULID]employee.Employee

	// Err, when set, is returned by every method.
	Err error
}

var _ employee.Repository = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{rows: make(map[ulid.ULID]employee.Employee)}
}

func (s *Store) conflict(e *employee.Employee) error {
	for id, row := range s.rows {
		if id == e.ID {
			continue
		}
		if strings.EqualFold(row.Email, e.Email) || (e.Code != "" && row.Code == e.Code) {
			return oops.Code("EMPLOYEE_DUPLICATE").With("email", e.Email).Wrap(errutil.ErrConflict)
		}
	}
	return nil
}

func matches(e *employee.Employee, f employee.Filter) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Department != "" && !strings.EqualFold(e.Department, f.Department) {
		return false
	}
	if f.Q == "" {
		return true
	}
	q := strings.ToLower(f.Q)
	for _, field := range []string{e.FirstName, e.LastName, e.Email, e.Position} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// List implements employee.Repository.
func (s *Store) List(_ context.Context, f employee.Filter) ([]*employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*employee.Employee, 0, len(s.rows))
	for _, row := range s.rows {
		if matches(&row, f) {
			e := row
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

// GetByID implements employee.Repository.
func (s *Store) GetByID(_ context.Context, id ulid.ULID) (*employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return &row, nil
}

// Create implements employee.Repository.
func (s *Store) Create(_ context.Context, e *employee.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if err := s.conflict(e); err != nil {
		return err
	}
	s.rows[e.ID] = *e
	return nil
}

// Update implements employee.Repository.
func (s *Store) Update(_ context.Context, e *employee.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.rows[e.ID]; !ok {
		return oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", e.ID.String()).Wrap(errutil.ErrNotFound)
	}
	if err := s.conflict(e); err != nil {
		return err
	}
	s.rows[e.ID] = *e
	return nil
}

// Delete implements employee.Repository.
func (s *Store) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.rows[id]; !ok {
		return oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

// Len returns the number of stored employees.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
