// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package auth provides authentication primitives for StaffDesk.
//
// # Domain Types
//
// Users are created with NewUser, which normalizes the email and assigns an
// ID. Repository implementations receive pre-validated users.
//
// # Sessions
//
// Sessions are stateless signed tokens issued by TokenService. A token is
// accepted until it expires unless a Denylist is configured, in which case
// Service.Logout revokes it.
//
// # Services
//
//   - Service - register, login, logout, current user
//   - TokenService - issue and verify session tokens
package auth
