// Package apperr defines the domain error taxonomy surfaced by the
// assistant pipeline. Handlers translate these into HTTP status codes;
// anything not in this taxonomy is an internal error and never leaks detail
// to the caller.
package apperr

import "errors"

// ValidationError marks input the system could not understand: malformed
// model output, an unsupported query type, or an invalid enum value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// PermissionError marks a privileged operation requested by a
// non-privileged principal. Distinct from validation failures.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

func NewPermission(msg string) *PermissionError {
	return &PermissionError{Message: msg}
}

// NotFoundError marks a missing resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFound(msg string) *NotFoundError {
	return &NotFoundError{Message: msg}
}

// RateLimitError marks a request rejected by the per-principal soft
// limiter. The window is fixed, so no retry-after hint is carried.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

func NewRateLimit(msg string) *RateLimitError {
	return &RateLimitError{Message: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
