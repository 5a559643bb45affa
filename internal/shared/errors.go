package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found or soft-deleted.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is the umbrella for every retryable write conflict.
	ErrConflict = errors.New("conflict")
	// ErrVersionConflict indicates the document changed since the caller read it.
	ErrVersionConflict = fmt.Errorf("%w: version mismatch", ErrConflict)
	// ErrAlreadyExists reports a unique key collision.
	ErrAlreadyExists = fmt.Errorf("%w: already exists", ErrConflict)
	// ErrDuplicate reports a duplicate submission detected by signature.
	ErrDuplicate = fmt.Errorf("%w: duplicate submission", ErrConflict)
	// ErrInvalidState indicates a transition not allowed from the current status.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInsufficientStock indicates a movement would drive a balance negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnauthorized indicates a missing or invalid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the actor lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Validationf wraps ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted detail.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
