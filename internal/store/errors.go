package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Common store errors used across the store and its backends.
var (
	// ErrNotFound is returned when a requested entity or record does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate,
	// such as registering the same doctype twice.
	ErrDuplicate = errors.New("entity already exists")

	// ErrConflict is returned by a backend when a write carries a stale
	// revision token.
	ErrConflict = errors.New("revision conflict")

	// ErrAttachmentMissing is returned when a binary payload is requested
	// for an entity that has none stored.
	ErrAttachmentMissing = errors.New("attachment missing")

	// ErrInvalidEntity is returned when a registration or record is malformed.
	ErrInvalidEntity = errors.New("invalid entity")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if the error reports a stale revision token.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// RegistrationError is returned when a doctype/subtype pair is used before it
// has been registered.
type RegistrationError struct {
	Type entity.Type
}

// Error implements the error interface for RegistrationError.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("doctype %q is not registered", e.Type.Key())
}

// IsRegistrationError checks if the error is a RegistrationError.
func IsRegistrationError(err error) bool {
	var regErr *RegistrationError
	return errors.As(err, &regErr)
}

// StoreError is a custom error type for backend errors with additional context.
type StoreError struct {
	Entity    string // The record id or doctype involved
	Operation string // The operation that failed (e.g., "put", "remove")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
