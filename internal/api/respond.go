// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/validation"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// messageBody is returned by endpoints that only confirm an action.
type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errutil.Kind(err) {
	case errutil.ErrValidation, errutil.ErrConflict:
		return http.StatusBadRequest
	case errutil.ErrUnauthenticated:
		return http.StatusUnauthorized
	case errutil.ErrForbidden:
		return http.StatusForbidden
	case errutil.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not found"
	default:
		return "Internal server error"
	}
}

// writeError is the single place errors become HTTP responses. Only public
// messages reach the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: oops.GetPublic(err, defaultMessage(status))}
	if status == http.StatusBadRequest {
		body.Details = validation.Fields(err)
	}

	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"status", status, "error_code", errutil.Code(err), "path", r.URL.Path)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		code := "REQUEST_MALFORMED"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			code = "REQUEST_TOO_LARGE"
		case errors.Is(err, io.EOF):
			code = "REQUEST_EMPTY"
		}
		// Field-level decode failures (bad dates) already carry a kind.
		if errutil.Kind(err) != nil {
			return oops.Code(code).Public("Invalid request body").Wrap(err)
		}
		return oops.Code(code).
			Public("Invalid request body").
			Wrapf(errutil.ErrValidation, "decode body: %v", err)
	}
	return nil
}
