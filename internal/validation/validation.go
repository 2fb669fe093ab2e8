// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package validation wraps go-playground/validator with the rules StaffDesk
// inputs share and converts failures into field-level errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"github.com/shopspring/decimal"

	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// Age bounds enforced by the "workage" rule.
const (
	MinAge = 18
	MaxAge = 100
)

var phoneRegex = regexp.MustCompile(`^\+?[\d\s\-()]+$`)

// now is replaced in tests.
var now = time.Now

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// decimal.Decimal compares as a float so gte/lte tags work on salaries.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		t, ok := asTime(fl.Field())
		return ok && !t.After(now())
	})
	mustRegister(v, "workage", func(fl validator.FieldLevel) bool {
		t, ok := asTime(fl.Field())
		if !ok {
			return false
		}
		age := Age(t, now())
		return age >= MinAge && age <= MaxAge
	})

	return v
}

// TimeValue is implemented by date types that wrap time.Time.
type TimeValue interface {
	Time() time.Time
}

// RegisterTimeType makes the date rules (notfuture, workage) and required
// apply to types other than time.Time.
func RegisterTimeType(types ...TimeValue) {
	values := make([]any, len(types))
	for i, t := range types {
		values[i] = t
	}
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if tv, ok := field.Interface().(TimeValue); ok {
			return tv.Time()
		}
		return nil
	}, values...)
}

func asTime(field reflect.Value) (time.Time, bool) {
	t, ok := field.Interface().(time.Time)
	return t, ok
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Age returns the number of whole years between birth and at.
func Age(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	return years
}

// Error carries per-field messages keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap makes every validation Error an errutil.ErrValidation.
func (e *Error) Unwrap() error { return errutil.ErrValidation }

// Struct validates v against its struct tags.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code("VALIDATION_SETUP").Wrap(err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return oops.Code("VALIDATION_FAILED").
		Public("Validation failed").
		Wrap(&Error{Fields: fields})
}

// Fields returns the field errors carried by err, if any.
func Fields(err error) map[string]string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "phone":
		return "must be a valid phone number"
	case "notfuture":
		return "cannot be in the future"
	case "workage":
		return fmt.Sprintf("must give an age between %d and %d", MinAge, MaxAge)
	default:
		return "is invalid"
	}
}
