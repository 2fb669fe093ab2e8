// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package postgres implements employee.Repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/staffdesk/staffdesk/internal/employee"
	"github.com/staffdesk/staffdesk/internal/store"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

const employeeColumns = `id, employee_code, first_name, last_name, email, phone, position, department,
	salary::text, hire_date, birth_date, address, emergency_contact, status, created_at, updated_at`

// Repository implements employee.Repository using PostgreSQL.
type Repository struct {
	db store.DB
}

var _ employee.Repository = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(db store.DB) *Repository {
	return &Repository{db: db}
}

// listQuery builds the SELECT for f. Placeholders are numbered in the order
// filters are added.
func listQuery(f employee.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Q != "" {
		p := arg("%" + escapeLike(f.Q) + "%")
		where = append(where, "(first_name ILIKE "+p+" OR last_name ILIKE "+p+
			" OR email ILIKE "+p+" OR position ILIKE "+p+")")
	}
	if f.Department != "" {
		where = append(where, "LOWER(department) = LOWER("+arg(f.Department)+")")
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}

	query := `SELECT ` + employeeColumns + ` FROM employees`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY last_name, first_name, id`
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// List returns employees matching f.
func (r *Repository) List(ctx context.Context, f employee.Filter) ([]*employee.Employee, error) {
	query, args := listQuery(f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("EMPLOYEE_QUERY_FAILED").With("operation", "list employees").Wrap(err)
	}
	defer rows.Close()

	var out []*employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, oops.Code("EMPLOYEE_SCAN_FAILED").With("operation", "list employees").Wrap(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("EMPLOYEE_QUERY_FAILED").With("operation", "iterate employees").Wrap(err)
	}
	return out, nil
}

// GetByID retrieves an employee by ID.
func (r *Repository) GetByID(ctx context.Context, id ulid.ULID) (*employee.Employee, error) {
	row := r.db.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id.String())

	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("EMPLOYEE_QUERY_FAILED").
			With("operation", "get employee by id").
			With("id", id.String()).
			Wrap(err)
	}
	return e, nil
}

// Create stores a new employee.
func (r *Repository) Create(ctx context.Context, e *employee.Employee) error {
	contact, err := json.Marshal(e.EmergencyContact)
	if err != nil {
		return oops.Code("EMPLOYEE_ENCODE_FAILED").Wrap(err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO employees (id, employee_code, first_name, last_name, email, phone, position,
			department, salary, hire_date, birth_date, address, emergency_contact, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14, $15, $16)
	`,
		e.ID.String(),
		nullString(e.Code),
		e.FirstName,
		e.LastName,
		e.Email,
		e.Phone,
		e.Position,
		e.Department,
		e.Salary.String(),
		nullDate(e.HireDate),
		nullDate(e.BirthDate),
		e.Address,
		contact,
		string(e.Status),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return oops.Code("EMPLOYEE_DUPLICATE").With("email", e.Email).Wrap(errutil.ErrConflict)
		}
		if store.IsCheckViolation(err) {
			return oops.Code("EMPLOYEE_CHECK_FAILED").With("id", e.ID.String()).Wrap(errutil.ErrValidation)
		}
		return oops.Code("EMPLOYEE_CREATE_FAILED").
			With("operation", "insert employee").
			With("id", e.ID.String()).
			Wrap(err)
	}
	return nil
}

// Update replaces an existing employee.
func (r *Repository) Update(ctx context.Context, e *employee.Employee) error {
	contact, err := json.Marshal(e.EmergencyContact)
	if err != nil {
		return oops.Code("EMPLOYEE_ENCODE_FAILED").Wrap(err)
	}

	result, err := r.db.Exec(ctx, `
		UPDATE employees SET
			employee_code = $2,
			first_name = $3,
			last_name = $4,
			email = $5,
			phone = $6,
			position = $7,
			department = $8,
			salary = $9::numeric,
			hire_date = $10,
			birth_date = $11,
			address = $12,
			emergency_contact = $13,
			status = $14,
			updated_at = $15
		WHERE id = $1
	`,
		e.ID.String(),
		nullString(e.Code),
		e.FirstName,
		e.LastName,
		e.Email,
		e.Phone,
		e.Position,
		e.Department,
		e.Salary.String(),
		nullDate(e.HireDate),
		nullDate(e.BirthDate),
		e.Address,
		contact,
		string(e.Status),
		e.UpdatedAt,
	)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return oops.Code("EMPLOYEE_DUPLICATE").With("email", e.Email).Wrap(errutil.ErrConflict)
		}
		if store.IsCheckViolation(err) {
			return oops.Code("EMPLOYEE_CHECK_FAILED").With("id", e.ID.String()).Wrap(errutil.ErrValidation)
		}
		return oops.Code("EMPLOYEE_UPDATE_FAILED").
			With("operation", "update employee").
			With("id", e.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", e.ID.String()).Wrap(errutil.ErrNotFound)
	}
	return nil
}

// Delete removes an employee.
func (r *Repository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("EMPLOYEE_DELETE_FAILED").
			With("operation", "delete employee").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("EMPLOYEE_ROW_NOT_FOUND").With("id", id.String()).Wrap(errutil.ErrNotFound)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullDate(d employee.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

func dateFrom(t *time.Time) employee.Date {
	if t == nil {
		return employee.Date{}
	}
	return employee.DateOf(t.UTC())
}

// scanEmployee scans one row. Callers handle pgx.ErrNoRows.
func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		idStr     string
		code      *string
		salary    string
		hireDate  *time.Time
		birthDate *time.Time
		contact   []byte
		status    string
		e         employee.Employee
	)

	err := row.Scan(
		&idStr,
		&code,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.Phone,
		&e.Position,
		&e.Department,
		&salary,
		&hireDate,
		&birthDate,
		&e.Address,
		&contact,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("EMPLOYEE_CORRUPT_ROW").With("id", idStr).Wrap(err)
	}
	e.ID = id

	e.Salary, err = decimal.NewFromString(salary)
	if err != nil {
		return nil, oops.Code("EMPLOYEE_CORRUPT_ROW").With("id", idStr).With("salary", salary).Wrap(err)
	}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &e.EmergencyContact); err != nil {
			return nil, oops.Code("EMPLOYEE_CORRUPT_ROW").With("id", idStr).Wrap(err)
		}
	}
	if code != nil {
		e.Code = *code
	}
	e.HireDate = dateFrom(hireDate)
	e.BirthDate = dateFrom(birthDate)
	e.Status = employee.Status(status)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
