package services

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the HTTP layer
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Conflict codes
const (
	CodeUserExists          = "USER_EXISTS"
	CodeEmailNotWhitelisted = "EMAIL_NOT_WHITELISTED"
	CodeClientInUse         = "CLIENT_IN_USE"
)

// ValidationError represents a bad or missing field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError represents a referenced entity that does not exist
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// UnauthorizedError represents a missing or invalid session
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// ForbiddenError represents an authenticated caller without the required role
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message == "" {
		return "insufficient permissions"
	}
	return e.Message
}

// ConflictError represents a rejected write such as a duplicate email or a
// registration outside the whitelist. Code tells them apart.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InternalError wraps an unexpected persistence failure.
// Error() never exposes the cause.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return "internal error"
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	var (
		validationErr   *ValidationError
		notFoundErr     *NotFoundError
		forbiddenErr    *ForbiddenError
		unauthorizedErr *UnauthorizedError
		conflictErr     *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &notFoundErr):
		return KindNotFound
	case errors.As(err, &forbiddenErr):
		return KindForbidden
	case errors.As(err, &unauthorizedErr):
		return KindUnauthorized
	case errors.As(err, &conflictErr):
		return KindConflict
	default:
		return KindInternal
	}
}
