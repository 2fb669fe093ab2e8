// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/staffdesk/staffdesk/internal/employee"
)

func TestListQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    employee.Filter
		wantWhere string
		wantArgs  []any
	}{
		{name: "no filter", filter: employee.Filter{}},
		{
			name:      "search",
			filter:    employee.Filter{Q: "ada"},
			wantWhere: "WHERE (first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR position ILIKE $1)",
			wantArgs:  []any{"%ada%"},
		},
		{
			name:      "department and status",
			filter:    employee.Filter{Department: "Research", Status: employee.StatusActive},
			wantWhere: "WHERE LOWER(department) = LOWER($1) AND status = $2",
			wantArgs:  []any{"Research", "active"},
		},
		{
			name:      "wildcards are literal",
			filter:    employee.Filter{Q: "50%_off"},
			wantWhere: "ILIKE $1",
			wantArgs:  []any{`%50\%\_off%`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listQuery(tt.filter)
			if tt.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
				assert.Empty(t, args)
			} else {
				assert.Contains(t, query, tt.wantWhere)
				assert.Equal(t, tt.wantArgs, args)
			}
			assert.Contains(t, query, "ORDER BY last_name, first_name")
		})
	}
}
