// Package apperror defines the domain errors shared by every layer.
//
// Repositories and services return these; handlers translate them into
// rendered pages or JSON bodies. Callers test for a kind with errors.Is
// against the sentinels below, and use errors.As to reach the message.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on field (e.g. a taken username).
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with that %s already exists", resource, field),
		Field:   field,
	}
}

// Unauthorized is returned when credentials don't check out. The message is
// shown to the user as-is, so it must not say which part was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldErrors collects validation failures for a whole form, keyed by field
// name. A non-empty FieldErrors is itself an error that unwraps to
// ErrValidation, so it flows through the same errors.Is checks as a single
// ValidationFailed.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
// The first failure per field is the one worth showing.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Get returns the message for field, or "" when the field is valid.
func (fe FieldErrors) Get(field string) string {
	return fe[field]
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error {
	return ErrValidation
}

// Err returns fe as an error, or nil when there is nothing to report.
// Returning a typed nil map through the error interface would be non-nil,
// so validators must go through this.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
