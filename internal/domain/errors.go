// Package domain defines the deck doctypes and their errors.
package domain

import "errors"

// Common domain errors used across the deck doctypes.
var (
	// ErrDetached is returned when an operation needs the store an entity is
	// installed into, but the entity has not been installed yet.
	ErrDetached = errors.New("entity is not installed in a store")

	// ErrNoteTypeNotFound is returned when a note refers to a note type that
	// is not in the store.
	ErrNoteTypeNotFound = errors.New("note type not found")

	// ErrFieldNotFound is returned when a field name is not defined by the
	// note type.
	ErrFieldNotFound = errors.New("field not found")

	// ErrEmptyName is returned when a deck, note type, field or template is
	// created without a name.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidMeta is returned when card metadata cannot be decoded into
	// the requested shape.
	ErrInvalidMeta = errors.New("invalid card metadata")
)
