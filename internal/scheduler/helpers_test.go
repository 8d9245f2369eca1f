package scheduler_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/memdb"
	"github.com/phrazzld/scry-decks/internal/scheduler"
	"github.com/phrazzld/scry-decks/internal/store"
)

var start = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

type env struct {
	clock    *fakeClock
	backend  *memdb.Backend
	store    *store.Store
	deck     *domain.Deck
	noteType *domain.NoteType
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{clock: &fakeClock{t: start}, backend: memdb.New(logger.Discard())}
	e.store = e.newStore(t)

	deck, err := domain.NewDeck("deck-1", "Verbs")
	require.NoError(t, err)
	require.NoError(t, e.store.SetObject(deck, true))
	nt, err := deck.CreateNoteType("Basic")
	require.NoError(t, err)
	_, err = nt.AddField("Front")
	require.NoError(t, err)
	_, err = nt.AddTemplate("Forward")
	require.NoError(t, err)

	e.deck, e.noteType = deck, nt
	return e
}

func (e *env) newStore(t *testing.T) *store.Store {
	t.Helper()
	r, err := domain.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, scheduler.Register(r, scheduler.WithClock(e.clock.Now)))
	return store.New(e.backend, r, logger.Discard())
}

// addCard creates a note with one card. A nil state leaves the card new.
func (e *env) addCard(t *testing.T, order *int, state *srs.State) *domain.Card {
	t.Helper()
	note, err := e.noteType.CreateNote()
	require.NoError(t, err)
	if order != nil {
		note.SetOrder(*order)
	}
	cards, err := note.Cards()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	if state != nil {
		require.NoError(t, cards[0].SetMeta(scheduler.MetaKey, *state))
	}
	return cards[0]
}

func (e *env) scheduler(t *testing.T, opts scheduler.Options) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.ForDeck(e.deck, scheduler.Settings{Options: opts},
		scheduler.WithClock(e.clock.Now),
		scheduler.WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)
	return s
}

// reviewed returns the state of a card in review that falls due at due.
func reviewed(due time.Time) *srs.State {
	last := due.Add(-72 * time.Hour)
	return &srs.State{
		Due:        due,
		Stability:  3,
		Difficulty: 5,
		LastReview: &last,
		Reps:       2,
		State:      srs.Review,
	}
}

func intPtr(n int) *int {
	return &n
}

func options(newCards, minInterval int) scheduler.Options {
	opts := scheduler.DefaultOptions()
	opts.NewCardsPerSession = newCards
	opts.MinReviewInterval = minInterval
	return opts
}
