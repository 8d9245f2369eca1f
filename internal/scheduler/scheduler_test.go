package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/scheduler"
	"github.com/phrazzld/scry-decks/internal/store"
)

func TestSingleDueCardSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	card := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
	s := e.scheduler(t, options(0, 3))

	require.NoError(t, s.Initialise([]*domain.Card{card}))
	assert.Equal(t, 1, s.SessionSize())

	got, err := s.NextCard()
	require.NoError(t, err)
	assert.Same(t, card, got)

	before, ok := s.State(card.ID())
	require.True(t, ok)
	require.NoError(t, s.CardRated(ctx, card, 1, start))
	after, ok := s.State(card.ID())
	require.True(t, ok)
	assert.True(t, after.Due.After(before.Due))
	assert.Equal(t, 1, s.Session.ReviewSequenceCount)
	assert.Zero(t, s.Session.NewCardsSeen)

	_, err = s.NextCard()
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrNoCardsLeft))
	assert.True(t, scheduler.IsNoCardsLeft(err))
	var schedErr *scheduler.SchedulerError
	require.True(t, errors.As(err, &schedErr))
	assert.Equal(t, scheduler.KindNoCardsLeft, schedErr.Kind)
	assert.Zero(t, s.SessionSize(), "an exhausted session is cleared")

	t.Run("rating was committed", func(t *testing.T) {
		rec, err := e.backend.Get(ctx, card.ID())
		require.NoError(t, err)
		meta, ok := rec.Fields["cardMeta"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, meta, scheduler.MetaKey)

		schedRec, err := e.backend.Get(ctx, s.ID())
		require.NoError(t, err)
		session := schedRec.Fields["currentSession"].(map[string]any)
		assert.EqualValues(t, 1, session["reviewSequenceCount"])
		assert.Empty(t, e.store.DirtyIDs())
	})
}

func TestNewCardsFollowOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	third := e.addCard(t, intPtr(3), nil)
	first := e.addCard(t, intPtr(1), nil)
	unordered := e.addCard(t, nil, nil)
	second := e.addCard(t, intPtr(2), nil)
	s := e.scheduler(t, options(2, 3))

	require.NoError(t, s.Initialise([]*domain.Card{third, first, unordered, second}))
	assert.Equal(t, 2, s.SessionSize(), "new cards are capped by the daily allowance")

	got, err := s.NextCard()
	require.NoError(t, err)
	assert.Same(t, first, got, "the lowest order is introduced first")

	require.NoError(t, s.CardRated(ctx, first, 0.7, start))
	assert.Equal(t, 1, s.Session.NewCardsSeen)
	state, _ := s.State(first.ID())
	assert.Equal(t, srs.Learning, state.State)

	got, err = s.NextCard()
	require.NoError(t, err)
	assert.Same(t, second, got, "a card just rated is spaced out")
}

func TestNextCardFallbacks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not due session card", func(t *testing.T) {
		e := newEnv(t)
		a := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
		b := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
		c := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
		s := e.scheduler(t, options(0, 2))
		require.NoError(t, s.Initialise([]*domain.Card{a, b, c}))

		require.NoError(t, s.CardRated(ctx, c, 1, start))
		require.NoError(t, s.CardRated(ctx, a, 0, start))
		require.NoError(t, s.CardRated(ctx, b, 1, start))

		// only a is still due, and it was rated too recently
		got, err := s.NextCard()
		require.NoError(t, err)
		assert.Same(t, c, got)
	})

	t.Run("card outside the session", func(t *testing.T) {
		e := newEnv(t)
		a := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
		later := e.addCard(t, nil, reviewed(start.Add(48*time.Hour)))
		s := e.scheduler(t, options(0, 3))
		require.NoError(t, s.Initialise([]*domain.Card{a, later}))
		assert.Equal(t, 1, s.SessionSize())

		require.NoError(t, s.CardRated(ctx, a, 0, start))
		got, err := s.NextCard()
		require.NoError(t, err)
		assert.Same(t, later, got)
	})

	t.Run("spacing is dropped as a last resort", func(t *testing.T) {
		e := newEnv(t)
		a := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
		s := e.scheduler(t, options(0, 3))
		require.NoError(t, s.Initialise([]*domain.Card{a}))

		require.NoError(t, s.CardRated(ctx, a, 0, start))
		got, err := s.NextCard()
		require.NoError(t, err)
		assert.Same(t, a, got)
	})
}

func TestCardRatedBeforeDue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	tomorrow := reviewed(start.Add(24 * time.Hour))
	card := e.addCard(t, nil, tomorrow)
	s := e.scheduler(t, scheduler.DefaultOptions())
	require.NoError(t, s.Initialise([]*domain.Card{card}))

	require.NoError(t, s.CardRated(ctx, card, 1, start))
	state, _ := s.State(card.ID())
	assert.True(t, state.Due.Equal(tomorrow.Due), "scheduling data is left alone")
	assert.Equal(t, 1, s.Session.ReviewSequenceCount)

	always := false
	require.NoError(t, s.UpdateOptions(scheduler.OptionsUpdate{OnlyRateIfDue: &always}))
	require.NoError(t, s.CardRated(ctx, card, 1, start))
	state, _ = s.State(card.ID())
	assert.False(t, state.Due.Equal(tomorrow.Due))
	assert.Equal(t, 3, state.Reps)
}

func TestCardRatedUnknownCard(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	card := e.addCard(t, nil, nil)
	s := e.scheduler(t, scheduler.DefaultOptions())

	err := s.CardRated(context.Background(), card, 1, start)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, s.Session.ReviewSequenceCount)
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	cards := []*domain.Card{
		e.addCard(t, nil, nil),
		e.addCard(t, nil, nil),
		e.addCard(t, nil, nil),
		e.addCard(t, nil, reviewed(start.Add(-time.Hour))),
		e.addCard(t, nil, reviewed(start.Add(72*time.Hour))),
	}
	s := e.scheduler(t, options(2, 3))

	stats, err := s.Statistics(cards)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Statistics{
		Due:    scheduler.Counts{New: 2, Seen: 1},
		NotDue: scheduler.Counts{New: 1, Seen: 1},
	}, stats)

	s.Session.NewCardsSeen = 5
	stats, err = s.Statistics(cards)
	require.NoError(t, err)
	assert.Zero(t, stats.Due.New)
	assert.Equal(t, 3, stats.NotDue.New)
}

func TestDueDatesAreFloored(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	// due at 09:10 counts as due from 09:00 with a 15 minute floor
	card := e.addCard(t, nil, reviewed(start.Add(10*time.Minute)))

	s := e.scheduler(t, options(0, 3))
	require.NoError(t, s.Initialise([]*domain.Card{card}))
	assert.Equal(t, 1, s.SessionSize())

	zero := 0
	require.NoError(t, s.UpdateOptions(scheduler.OptionsUpdate{FloorDueDateMinutes: &zero}))
	require.NoError(t, s.Initialise([]*domain.Card{card}))
	assert.Zero(t, s.SessionSize())
}

func TestSessionRollsOverDaily(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	s := e.scheduler(t, options(1, 3))
	require.NoError(t, e.store.Persist(ctx))

	s.Session.NewCardsSeen = 1
	s.Session.ReviewSequenceCount = 7
	card := e.addCard(t, nil, nil)

	require.NoError(t, s.Initialise([]*domain.Card{card}))
	assert.Zero(t, s.SessionSize(), "today's allowance is used up")

	e.clock.t = start.Add(24 * time.Hour)
	require.NoError(t, s.Initialise([]*domain.Card{card}))
	assert.Equal(t, 1, s.SessionSize())
	assert.Zero(t, s.Session.NewCardsSeen)
	assert.Equal(t, 7, s.Session.StartedAtSequenceCount)
	assert.True(t, s.Session.StartedAt.Equal(e.clock.t))
	assert.True(t, e.store.IsDirty(s.ID()))
}

func TestUpdateOptions(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	s := e.scheduler(t, scheduler.DefaultOptions())
	require.NoError(t, e.store.Persist(context.Background()))

	n := 10
	require.NoError(t, s.UpdateOptions(scheduler.OptionsUpdate{NewCardsPerSession: &n}))
	assert.Equal(t, 10, s.Options.NewCardsPerSession)
	assert.Equal(t, 3, s.Options.MinReviewInterval, "unset fields are kept")
	assert.True(t, e.store.IsDirty(s.ID()))

	bad := -1
	err := s.UpdateOptions(scheduler.OptionsUpdate{MinReviewInterval: &bad})
	assert.ErrorIs(t, err, scheduler.ErrInvalidOptions)
	assert.Equal(t, 3, s.Options.MinReviewInterval)
}

func TestForDeckReusesPersistedScheduler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	s := e.scheduler(t, options(7, 2))
	assert.Equal(t, s.ID(), e.deck.ActiveSchedulerID)
	assert.Equal(t, []string{"deck-1"}, s.RelatedIDs())
	require.NoError(t, e.store.Persist(ctx))

	again := e.scheduler(t, scheduler.DefaultOptions())
	assert.Same(t, s, again)

	fresh := e.newStore(t)
	_, err := fresh.LoadAll(ctx)
	require.NoError(t, err)
	obj, ok := fresh.Get("deck-1")
	require.True(t, ok)
	loaded, err := scheduler.ForDeck(obj.(*domain.Deck), scheduler.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), loaded.ID())
	assert.Equal(t, options(7, 2), loaded.Options)
	assert.Equal(t, s.Parameters, loaded.Parameters)
	assert.True(t, s.Session.StartedAt.Equal(loaded.Session.StartedAt))
	assert.False(t, loaded.HasChanged())
}

func TestForDeckDetached(t *testing.T) {
	t.Parallel()
	deck, err := domain.NewDeck("", "Loose")
	require.NoError(t, err)
	_, err = scheduler.ForDeck(deck, scheduler.DefaultSettings())
	assert.ErrorIs(t, err, domain.ErrDetached)
}

func TestCardRatedLogs(t *testing.T) {
	t.Parallel()
	ctx, buf := logger.NewTestContext(t)
	e := newEnv(t)
	card := e.addCard(t, nil, reviewed(start.Add(-time.Hour)))
	s := e.scheduler(t, scheduler.DefaultOptions())
	require.NoError(t, s.Initialise([]*domain.Card{card}))

	require.NoError(t, s.CardRated(ctx, card, 0.7, start))
	logger.AssertLogContains(t, buf, "card rated")
	logger.AssertLogField(t, buf, "card_id", card.ID())
}
