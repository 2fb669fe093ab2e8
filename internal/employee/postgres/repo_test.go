// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/staffdesk/internal/employee"
	"github.com/staffdesk/staffdesk/internal/employee/postgres"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

var employeeCols = []string{
	"id", "employee_code", "first_name", "last_name", "email", "phone", "position", "department",
	"salary", "hire_date", "birth_date", "address", "emergency_contact", "status", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func sampleEmployee() *employee.Employee {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return &employee.Employee{
		ID:         ulid.Make(),
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@x.com",
		Phone:      "+44 20 7946 0000",
		Position:   "Engineer",
		Department: "Research",
		Salary:     decimal.RequireFromString("5200.50"),
		HireDate:   employee.NewDate(2020, time.January, 15),
		BirthDate:  employee.NewDate(1990, time.December, 10),
		Address:    "12 St James's Square",
		EmergencyContact: employee.EmergencyContact{
			Name: "Mary", Phone: "+44 1", Relationship: "Mentor",
		},
		Status:    employee.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func employeeRow(rows *pgxmock.Rows, e *employee.Employee, code *string) *pgxmock.Rows {
	hire := e.HireDate.Time()
	birth := e.BirthDate.Time()
	return rows.AddRow(
		e.ID.String(), code, e.FirstName, e.LastName, e.Email, e.Phone, e.Position, e.Department,
		e.Salary.StringFixed(2), &hire, &birth, e.Address,
		[]byte(`{"name":"Mary","phone":"+44 1","relationship":"Mentor"}`),
		string(e.Status), e.CreatedAt, e.UpdatedAt,
	)
}

func TestRepository_GetByID(t *testing.T) {
	want := sampleEmployee()
	code := "E-001"

	mock := newMock(t)
	mock.ExpectQuery(`FROM employees WHERE id = \$1`).
		WithArgs(want.ID.String()).
		WillReturnRows(employeeRow(pgxmock.NewRows(employeeCols), want, &code))

	got, err := postgres.NewRepository(mock).GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "E-001", got.Code)
	assert.True(t, want.Salary.Equal(got.Salary))
	assert.Equal(t, want.HireDate, got.HireDate)
	assert.Equal(t, want.BirthDate, got.BirthDate)
	assert.Equal(t, want.EmergencyContact, got.EmergencyContact)
	assert.Equal(t, employee.StatusActive, got.Status)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	id := ulid.Make()
	mock := newMock(t)
	mock.ExpectQuery(`FROM employees WHERE id`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows(employeeCols))

	_, err := postgres.NewRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, errutil.ErrNotFound)
	errutil.AssertErrorCode(t, err, "EMPLOYEE_ROW_NOT_FOUND")
}

func TestRepository_List(t *testing.T) {
	a := sampleEmployee()
	b := sampleEmployee()
	b.FirstName, b.Email = "Augusta", "augusta@x.com"

	mock := newMock(t)
	rows := pgxmock.NewRows(employeeCols)
	employeeRow(rows, a, nil)
	employeeRow(rows, b, nil)
	mock.ExpectQuery(`FROM employees WHERE LOWER\(department\) = LOWER\(\$1\)`).
		WithArgs("Research").
		WillReturnRows(rows)

	got, err := postgres.NewRepository(mock).List(context.Background(), employee.Filter{Department: "Research"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Augusta", got[1].FirstName)
	assert.Empty(t, got[0].Code)
}

func TestRepository_List_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM employees`).WillReturnError(errors.New("connection refused"))

	_, err := postgres.NewRepository(mock).List(context.Background(), employee.Filter{})
	errutil.AssertErrorCode(t, err, "EMPLOYEE_QUERY_FAILED")
}

func TestRepository_Create(t *testing.T) {
	e := sampleEmployee()

	tests := []struct {
		name     string
		mockErr  error
		wantKind error
		wantCode string
	}{
		{"inserts", nil, nil, ""},
		{"duplicate", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, errutil.ErrConflict, "EMPLOYEE_DUPLICATE"},
		{"check violation", &pgconn.PgError{Code: pgerrcode.CheckViolation}, errutil.ErrValidation, "EMPLOYEE_CHECK_FAILED"},
		{"database error", errors.New("connection refused"), nil, "EMPLOYEE_CREATE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO employees`).WithArgs(
				e.ID.String(), pgxmock.AnyArg(), "Ada", "Lovelace", "ada@x.com", e.Phone, "Engineer",
				"Research", "5200.5", pgxmock.AnyArg(), pgxmock.AnyArg(), e.Address, pgxmock.AnyArg(),
				"active", pgxmock.AnyArg(), pgxmock.AnyArg(),
			)
			if tt.mockErr != nil {
				exp.WillReturnError(tt.mockErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := postgres.NewRepository(mock).Create(context.Background(), e)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
			}
		})
	}
}

func TestRepository_Update(t *testing.T) {
	e := sampleEmployee()

	tests := []struct {
		name     string
		setup    func(exp *pgxmock.ExpectedExec)
		wantCode string
	}{
		{"updates", func(x *pgxmock.ExpectedExec) { x.WillReturnResult(pgxmock.NewResult("UPDATE", 1)) }, ""},
		{"missing row", func(x *pgxmock.ExpectedExec) { x.WillReturnResult(pgxmock.NewResult("UPDATE", 0)) }, "EMPLOYEE_ROW_NOT_FOUND"},
		{"duplicate", func(x *pgxmock.ExpectedExec) {
			x.WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		}, "EMPLOYEE_DUPLICATE"},
		{"database error", func(x *pgxmock.ExpectedExec) { x.WillReturnError(errors.New("boom")) }, "EMPLOYEE_UPDATE_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock.ExpectExec(`UPDATE employees SET`).WithArgs(
				e.ID.String(), pgxmock.AnyArg(), "Ada", "Lovelace", "ada@x.com", e.Phone, "Engineer",
				"Research", "5200.5", pgxmock.AnyArg(), pgxmock.AnyArg(), e.Address, pgxmock.AnyArg(),
				"active", pgxmock.AnyArg(),
			))

			err := postgres.NewRepository(mock).Update(context.Background(), e)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestRepository_Delete(t *testing.T) {
	id := ulid.Make()

	t.Run("deletes", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM employees WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		require.NoError(t, postgres.NewRepository(mock).Delete(context.Background(), id))
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM employees`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		err := postgres.NewRepository(mock).Delete(context.Background(), id)
		assert.ErrorIs(t, err, errutil.ErrNotFound)
	})
}
