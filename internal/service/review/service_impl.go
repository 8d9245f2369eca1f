package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/events"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/scheduler"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// serviceImpl implements Service. Operations are serialised because the
// store's index is not safe for concurrent mutation.
type serviceImpl struct {
	index     Index
	settings  scheduler.Settings
	schedOpts []scheduler.Option
	emitter   events.EventEmitter
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*scheduler.Scheduler
}

// Option configures the service.
type Option func(*serviceImpl)

// WithEmitter publishes a TypeCardRated event for every answer.
func WithEmitter(e events.EventEmitter) Option {
	return func(s *serviceImpl) {
		s.emitter = e
	}
}

// WithClock replaces the clock used for ratings and due checks.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		s.now = now
	}
}

// WithSchedulerOptions passes runtime options to every scheduler the
// service resolves.
func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *serviceImpl) {
		s.schedOpts = append(s.schedOpts, opts...)
	}
}

// NewService creates a review Service over index. settings apply to
// schedulers created for decks that have none yet.
func NewService(index Index, settings scheduler.Settings, logger *slog.Logger, opts ...Option) Service {
	if index == nil {
		panic("index cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		index:    index,
		settings: settings,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "review_service")),
		sessions: make(map[string]*scheduler.Scheduler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.schedOpts = append([]scheduler.Option{scheduler.WithClock(s.now)}, s.schedOpts...)
	return s
}

// NextCard implements Service.NextCard.
func (s *serviceImpl) NextCard(ctx context.Context, deckID string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logger.FromContextOrDefault(ctx, s.logger)

	sched, _, err := s.session(deckID)
	if err != nil {
		return nil, s.fail(log, "next_card", deckID, err)
	}

	card, err := sched.NextCard()
	if err != nil {
		if scheduler.IsNoCardsLeft(err) {
			delete(s.sessions, deckID)
			log.Debug("no cards due for review", slog.String("deck_id", deckID))
			return nil, fmt.Errorf("%w: %w", ErrNoCardsDue, err)
		}
		return nil, s.fail(log, "next_card", deckID, err)
	}

	log.Debug("selected next review card",
		slog.String("deck_id", deckID),
		slog.String("card_id", card.ID()))
	return card, nil
}

// SubmitAnswer implements Service.SubmitAnswer.
func (s *serviceImpl) SubmitAnswer(
	ctx context.Context,
	deckID, cardID string,
	answer ReviewAnswer,
) (srs.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logger.FromContextOrDefault(ctx, s.logger)

	sched, _, err := s.session(deckID)
	if err != nil {
		return srs.State{}, s.fail(log, "submit_answer", deckID, err)
	}

	obj, ok := s.index.Get(cardID)
	card, isCard := obj.(*domain.Card)
	if !ok || !isCard {
		log.Warn("card not found for review",
			slog.String("deck_id", deckID),
			slog.String("card_id", cardID))
		return srs.State{}, ErrCardNotFound
	}

	ratedAt := s.now()
	if err := sched.CardRated(logger.WithLogger(ctx, log), card, answer.Rating, ratedAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return srs.State{}, fmt.Errorf("%w: %w", ErrCardNotFound, err)
		}
		return srs.State{}, s.fail(log, "submit_answer", deckID, err)
	}

	state, _ := sched.State(cardID)
	s.publish(ctx, log, events.CardRated{
		DeckID:  deckID,
		CardID:  cardID,
		Rating:  srs.RatingFromValue(answer.Rating).String(),
		Due:     state.Due,
		RatedAt: ratedAt,
	})
	return state, nil
}

// Statistics implements Service.Statistics.
func (s *serviceImpl) Statistics(ctx context.Context, deckID string) (scheduler.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logger.FromContextOrDefault(ctx, s.logger)

	sched, deck, err := s.resolve(deckID)
	if err != nil {
		return scheduler.Statistics{}, s.fail(log, "statistics", deckID, err)
	}
	cards, err := deck.WorkingSet()
	if err != nil {
		return scheduler.Statistics{}, s.fail(log, "statistics", deckID, err)
	}
	stats, err := sched.Statistics(cards)
	if err != nil {
		return scheduler.Statistics{}, s.fail(log, "statistics", deckID, err)
	}
	return stats, nil
}

// resolve returns the deck and its active scheduler.
func (s *serviceImpl) resolve(deckID string) (*scheduler.Scheduler, *domain.Deck, error) {
	obj, ok := s.index.Get(deckID)
	deck, isDeck := obj.(*domain.Deck)
	if !ok || !isDeck || deck.ShouldDelete() {
		return nil, nil, fmt.Errorf("%w: %s", ErrDeckNotFound, deckID)
	}
	sched, err := scheduler.ForDeck(deck, s.settings, s.schedOpts...)
	if err != nil {
		return nil, nil, err
	}
	return sched, deck, nil
}

// session returns the deck's scheduler with its working set initialised,
// reusing the session of an earlier call.
func (s *serviceImpl) session(deckID string) (*scheduler.Scheduler, *domain.Deck, error) {
	sched, deck, err := s.resolve(deckID)
	if err != nil {
		return nil, nil, err
	}
	if cached, ok := s.sessions[deckID]; ok && cached == sched {
		return sched, deck, nil
	}

	cards, err := deck.WorkingSet()
	if err != nil {
		return nil, nil, err
	}
	if err := sched.Initialise(cards); err != nil {
		return nil, nil, err
	}
	s.sessions[deckID] = sched
	s.logger.Debug("initialised review session",
		slog.String("deck_id", deckID),
		slog.Int("cards", len(cards)),
		slog.Int("session_size", sched.SessionSize()))
	return sched, deck, nil
}

func (s *serviceImpl) publish(ctx context.Context, log *slog.Logger, payload events.CardRated) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(events.TypeCardRated, payload)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("card rated event was not handled",
			slog.String("card_id", payload.CardID),
			slog.String("error", err.Error()))
	}
}

// fail logs err and wraps it for the caller. Sentinel errors of this package
// pass through unchanged.
func (s *serviceImpl) fail(log *slog.Logger, op, deckID string, err error) error {
	if errors.Is(err, ErrDeckNotFound) || errors.Is(err, ErrCardNotFound) {
		return err
	}
	log.Error("review operation failed",
		slog.String("operation", op),
		slog.String("deck_id", deckID),
		slog.String("error", err.Error()))
	return NewServiceError(op, "review operation failed", err)
}
