package srs

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrInvalidRating = errors.New("invalid review rating")
	ErrInvalidDays   = errors.New("postpone days must be at least 1")
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// Review computes the state that follows a review with the given rating
	Review(state State, rating Rating, now time.Time) (State, error)

	// Retrievability estimates the probability of recall at now
	Retrievability(state State, now time.Time) float64

	// PostponeReview pushes the next review time forward by a specified number of days
	PostponeReview(state State, days int, now time.Time) (State, error)

	// Params returns the parameters the service schedules with
	Params() *Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// Review implements the Service interface
func (s *defaultService) Review(state State, rating Rating, now time.Time) (State, error) {
	if !rating.IsValid() {
		return State{}, ErrInvalidRating
	}
	return calculateNextState(state, rating, now, s.params), nil
}

// Retrievability implements the Service interface. Cards that were never
// reviewed have no memory to recall.
func (s *defaultService) Retrievability(state State, now time.Time) float64 {
	if state.IsNew() || state.Stability <= 0 {
		return 0
	}
	elapsed := now.Sub(*state.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return retrievability(elapsed, state.Stability, s.params)
}

// PostponeReview implements the Service interface
func (s *defaultService) PostponeReview(state State, days int, now time.Time) (State, error) {
	if days < 1 {
		return State{}, ErrInvalidDays
	}
	next := state
	base := state.Due
	if base.Before(now) {
		base = now
	}
	next.Due = base.AddDate(0, 0, days)
	return next, nil
}

// Params implements the Service interface
func (s *defaultService) Params() *Params {
	return s.params
}
