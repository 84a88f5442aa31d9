package domain

import (
	"errors"
	"fmt"
)

// Sentinel classifications for user-visible failures. Handlers map these to
// HTTP statuses; anything unclassified is reported as a generic internal error.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("internal error")
)

// ClassifiedError carries a client-safe message alongside its classification.
type ClassifiedError struct {
	Kind    error
	Message string
}

func (e *ClassifiedError) Error() string { return e.Message }

func (e *ClassifiedError) Unwrap() error { return e.Kind }

func NewValidationError(format string, args ...any) error {
	return &ClassifiedError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &ClassifiedError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) error {
	return &ClassifiedError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorizedError(format string, args ...any) error {
	return &ClassifiedError{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
