// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package errutil holds the error kinds shared across StaffDesk and helpers
// for logging and asserting on samber/oops errors.
package errutil

import (
	"errors"

	"github.com/samber/oops"
)

// Error kinds. Domain errors wrap exactly one of these so the HTTP boundary
// can map them to a status without knowing the domain.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrConfiguration   = errors.New("configuration error")
)

// Kind returns the error kind err wraps, or nil when it wraps none.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrUnauthenticated,
		ErrForbidden,
		ErrConflict,
		ErrNotFound,
		ErrConfiguration,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code returns the oops code attached to err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}
