package scheduler

import (
	"errors"
	"fmt"
)

// ErrorKind classifies scheduler errors.
type ErrorKind string

// KindNoCardsLeft reports that no session card is due.
const KindNoCardsLeft ErrorKind = "NO_CARDS_LEFT"

// SchedulerError is a typed scheduler failure. Two SchedulerErrors match
// under errors.Is when their kinds are equal.
type SchedulerError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface for SchedulerError.
func (e *SchedulerError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target is a SchedulerError of the same kind.
func (e *SchedulerError) Is(target error) bool {
	var t *SchedulerError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// ErrNoCardsLeft matches the error NextCard returns once the session has
	// no due cards.
	ErrNoCardsLeft = &SchedulerError{Kind: KindNoCardsLeft}

	// ErrInvalidOptions is returned when scheduler options fail validation.
	ErrInvalidOptions = errors.New("invalid scheduler options")
)

// IsNoCardsLeft checks if the error reports an exhausted session.
func IsNoCardsLeft(err error) bool {
	return errors.Is(err, ErrNoCardsLeft)
}
