// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package api is the HTTP surface of StaffDesk: the session cookie, the
// route guard in front of every request, and the auth and employee
// handlers behind it.
package api
