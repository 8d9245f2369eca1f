// Package review runs study sessions over a deck store: it resolves a deck's
// scheduler, keeps its working set initialised and records answers.
package review

import (
	"context"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/scheduler"
)

// ReviewAnswer is a learner's answer to a card. Any rating value is
// accepted: values up to 0 mean again, below 0.5 hard, below 1 good and
// anything higher easy.
type ReviewAnswer struct {
	Rating float64 `json:"rating"`
}

// Service provides review sessions for decks.
type Service interface {
	// NextCard returns the card to study next in the deck. It returns
	// ErrNoCardsDue once the session is exhausted; the following call starts
	// a fresh session.
	NextCard(ctx context.Context, deckID string) (*domain.Card, error)

	// SubmitAnswer records an answer and commits the store. It returns the
	// card's scheduling state after the answer.
	SubmitAnswer(ctx context.Context, deckID, cardID string, answer ReviewAnswer) (srs.State, error)

	// Statistics counts the deck's due and upcoming cards.
	Statistics(ctx context.Context, deckID string) (scheduler.Statistics, error)
}

// Index is the part of the store the service reads from.
type Index interface {
	Get(id string) (entity.Object, bool)
}
