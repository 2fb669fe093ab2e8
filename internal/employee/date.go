// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package employee

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/validation"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// DateLayout is the wire format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date time.Time

func init() {
	validation.RegisterTimeType(Date{})
}

// NewDate truncates t to its calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day t falls on in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, oops.Code("EMPLOYEE_INVALID_DATE").
			With("value", s).
			Wrapf(errutil.ErrValidation, "date must be YYYY-MM-DD")
	}
	return DateOf(t.UTC()), nil
}

// Time implements validation.TimeValue.
func (d Date) Time() time.Time { return time.Time(d) }

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return time.Time(d).IsZero() }

func (d Date) String() string { return time.Time(d).Format(DateLayout) }

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return oops.Code("EMPLOYEE_INVALID_DATE").Wrapf(errutil.ErrValidation, "date must be a string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
