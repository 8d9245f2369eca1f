package srs

import (
	"fmt"
	"time"
)

// Rating is the learner's assessment of a recall attempt.
type Rating int

const (
	// Again means the answer was forgotten.
	Again Rating = iota + 1
	// Hard means the answer was recalled with serious difficulty.
	Hard
	// Good means the answer was recalled after some hesitation.
	Good
	// Easy means the answer was recalled effortlessly.
	Easy
)

// String implements fmt.Stringer.
func (r Rating) String() string {
	switch r {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	default:
		return fmt.Sprintf("Rating(%d)", int(r))
	}
}

// IsValid reports whether r is one of the four ratings.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// RatingFromValue maps a continuous answer score onto a rating:
// values up to 0 are Again, below 0.5 Hard, below 1 Good and anything else Easy.
func RatingFromValue(value float64) Rating {
	switch {
	case value <= 0:
		return Again
	case value < 0.5:
		return Hard
	case value < 1:
		return Good
	default:
		return Easy
	}
}

// CardState is the learning stage of a card.
type CardState int

const (
	// New cards have never been reviewed.
	New CardState = iota
	// Learning cards are working through the learning steps.
	Learning
	// Review cards are on long-term intervals.
	Review
	// Relearning cards were forgotten and are working through relearning steps.
	Relearning
)

// String implements fmt.Stringer.
func (s CardState) String() string {
	switch s {
	case New:
		return "new"
	case Learning:
		return "learning"
	case Review:
		return "review"
	case Relearning:
		return "relearning"
	default:
		return fmt.Sprintf("CardState(%d)", int(s))
	}
}

// State is the scheduling state of one card.
type State struct {
	Due        time.Time  `json:"due"`
	Stability  float64    `json:"stability"`
	Difficulty float64    `json:"difficulty"`
	LastReview *time.Time `json:"lastReview,omitempty"`
	Reps       int        `json:"reps"`
	Lapses     int        `json:"lapses"`
	State      CardState  `json:"state"`
	Step       int        `json:"step,omitempty"`
}

// NewState returns the state of a card that has never been reviewed and is
// due at now.
func NewState(now time.Time) State {
	return State{Due: now, State: New}
}

// IsNew reports whether the card has never been reviewed.
func (s State) IsNew() bool {
	return s.LastReview == nil
}
