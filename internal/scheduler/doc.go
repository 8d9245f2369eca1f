// Package scheduler provides the FSRS scheduler document.
//
// A scheduler is attached to a deck and persisted like any other root. Its
// working set is rebuilt with Initialise from the deck's cards; each card's
// scheduling state lives in the card's metadata under MetaKey, so cards
// are only written once they have been rated. NextCard draws from the
// current session and fails with ErrNoCardsLeft once nothing is due.
package scheduler
