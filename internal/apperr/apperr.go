package apperr

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a failure that already knows which HTTP status it maps to.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, format, args...)
}

// ValidationError collects per-field messages for a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records the first message for a field.
func (v *ValidationError) Add(field, message string) {
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = message
	}
}

// Check records err under field when it is not nil.
func (v *ValidationError) Check(field string, err error) {
	if err != nil {
		v.Add(field, err.Error())
	}
}

func (v *ValidationError) HasErrors() bool {
	return len(v.Fields) > 0
}

// Err returns nil when nothing was recorded so callers can `return v.Err()`.
func (v *ValidationError) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
