// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package employee manages the staff directory shown on the dashboard.
//
// Employees are plain records: there is no link between an employee and a
// login account. Access control happens at the HTTP layer.
package employee
