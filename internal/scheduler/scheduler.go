package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Doctype is the tag of FSRS scheduler documents.
var Doctype = entity.Type{Doctype: "scheduler", Subtype: "fsrs"}

// MetaKey is the card metadata key scheduling state is stored under.
const MetaKey = "fsrs_v1"

// Statistics summarises a working set.
type Statistics struct {
	Due    Counts `json:"due"`
	NotDue Counts `json:"not_due"`
}

// Counts splits cards into never-reviewed and reviewed ones.
type Counts struct {
	New  int `json:"new"`
	Seen int `json:"seen"`
}

// Scheduler is the document that decides which card to study next and
// records ratings. Its options, model parameters and session counters are
// persisted; the working set is rebuilt by Initialise.
type Scheduler struct {
	entity.Entity

	DeckID     string
	Options    Options
	Parameters srs.Params
	Session    Session

	now func() time.Time
	rng *rand.Rand
	srs srs.Service

	all     []*cardMeta
	byID    map[string]*cardMeta
	session []*cardMeta
}

// Option configures the runtime collaborators of a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the clock used for due checks and session days.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithRand replaces the source of random picks.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		s.rng = r
	}
}

// New creates a scheduler for deckID with the given settings. An empty id is
// replaced by a random one.
func New(id, deckID string, settings Settings, opts ...Option) *Scheduler {
	params := settings.Params
	if params == nil {
		params = srs.NewDefaultParams()
	}
	s := &Scheduler{
		Entity:     entity.New(id),
		DeckID:     deckID,
		Options:    settings.Options,
		Parameters: *params,
	}
	s.configure(opts...)
	s.Session = newSession(s.now())
	return s
}

func (s *Scheduler) configure(opts ...Option) {
	for _, opt := range opts {
		opt(s)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.srs = srs.NewServiceWithParams(&s.Parameters)
}

// Register adds the scheduler doctype to r. Restored schedulers are
// configured with opts.
func Register(r *store.Registry, opts ...Option) error {
	return r.Register(store.Registration{
		Type:             Doctype,
		Embedding:        entity.Root(),
		PersistIfUnsaved: true,
		New: func(rec *entity.Record) (entity.Object, error) {
			return restore(rec, opts...)
		},
	})
}

func restore(rec *entity.Record, opts ...Option) (*Scheduler, error) {
	var f struct {
		DeckID     string     `json:"deckId"`
		Options    Options    `json:"options"`
		Parameters srs.Params `json:"parameters"`
		Session    Session    `json:"currentSession"`
	}
	if err := entity.Decode(rec.Fields, &f); err != nil {
		return nil, err
	}
	if err := f.Parameters.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		Entity:     entity.Restore(rec),
		DeckID:     f.DeckID,
		Options:    f.Options,
		Parameters: f.Parameters,
		Session:    f.Session,
	}
	s.configure(opts...)
	return s, nil
}

// ForDeck returns the deck's active scheduler, creating and attaching a new
// one when the deck has none. The deck must be installed in a store.
func ForDeck(deck *domain.Deck, settings Settings, opts ...Option) (*Scheduler, error) {
	idx := deck.Index()
	if idx == nil {
		return nil, domain.ErrDetached
	}
	if obj, ok := idx.Get(deck.ActiveSchedulerID); ok {
		if s, ok := obj.(*Scheduler); ok {
			s.configure(opts...)
			return s, nil
		}
	}
	s := New("", deck.ID(), settings, opts...)
	if err := idx.SetObject(s, true); err != nil {
		return nil, err
	}
	deck.SetActiveScheduler(s.ID())
	return s, nil
}

func (s *Scheduler) Base() *entity.Entity { return &s.Entity }
func (s *Scheduler) Type() entity.Type    { return Doctype }

func (s *Scheduler) RelatedIDs() []string {
	if s.DeckID == "" {
		return nil
	}
	return []string{s.DeckID}
}

func (s *Scheduler) Properties() map[string]any {
	return map[string]any{
		"deckId":         s.DeckID,
		"options":        s.Options,
		"parameters":     s.Parameters,
		"currentSession": s.Session,
	}
}

// UpdateOptions merges a partial update into the options.
func (s *Scheduler) UpdateOptions(u OptionsUpdate) error {
	next := s.Options.merge(u)
	if err := next.Validate(); err != nil {
		return err
	}
	s.Options = next
	s.MarkDirty()
	return nil
}

// Initialise rebuilds the working set from cards and composes the session:
// every reviewed card that is due, then as many new cards as today's
// allowance leaves, lowest order first.
func (s *Scheduler) Initialise(cards []*domain.Card) error {
	s.session = nil
	if s.Session.rollover(s.now()) {
		s.MarkDirty()
	}
	if err := s.setCards(cards); err != nil {
		return err
	}

	now := s.now()
	var fresh []*cardMeta
	for _, m := range s.all {
		switch {
		case m.isNew():
			fresh = append(fresh, m)
		case m.isDue(now, s.Options.FloorDueDateMinutes):
			s.session = append(s.session, m)
		}
	}
	fresh = sortByOrder(fresh)
	if n := s.newRemaining(); len(fresh) > n {
		fresh = fresh[:n]
	}
	s.session = append(s.session, fresh...)
	return nil
}

func (s *Scheduler) setCards(cards []*domain.Card) error {
	s.all = make([]*cardMeta, 0, len(cards))
	s.byID = make(map[string]*cardMeta, len(cards))
	for _, card := range cards {
		if _, ok := s.byID[card.ID()]; ok {
			continue
		}
		m, err := s.metaFor(card)
		if err != nil {
			return err
		}
		s.byID[card.ID()] = m
		s.all = append(s.all, m)
	}
	return nil
}

func (s *Scheduler) metaFor(card *domain.Card) (*cardMeta, error) {
	m := &cardMeta{card: card}
	ok, err := card.GetMeta(MetaKey, &m.state)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.state = srs.NewState(s.now())
	}
	if order, ok := card.Order(); ok {
		m.order = &order
	}
	return m, nil
}

func (s *Scheduler) newRemaining() int {
	return max(s.Options.NewCardsPerSession-s.Session.NewCardsSeen, 0)
}

// Statistics counts cards by whether they are due and new. Due new cards are
// capped at today's remaining allowance; the rest count as not due.
func (s *Scheduler) Statistics(cards []*domain.Card) (Statistics, error) {
	if s.Session.rollover(s.now()) {
		s.MarkDirty()
	}
	now := s.now()
	var fresh, due, notDue int
	for _, card := range cards {
		m, err := s.metaFor(card)
		if err != nil {
			return Statistics{}, err
		}
		switch {
		case m.isNew():
			fresh++
		case m.isDue(now, s.Options.FloorDueDateMinutes):
			due++
		default:
			notDue++
		}
	}
	remaining := s.newRemaining()
	return Statistics{
		Due:    Counts{New: min(fresh, remaining), Seen: due},
		NotDue: Counts{New: max(0, fresh-remaining), Seen: notDue},
	}, nil
}

// NextCard picks the card to show next. It fails with ErrNoCardsLeft, and
// clears the session, once no session card is due.
func (s *Scheduler) NextCard() (*domain.Card, error) {
	now := s.now()
	floor := s.Options.FloorDueDateMinutes

	var eligible []*cardMeta
	for _, m := range s.session {
		if m.isDue(now, floor) {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		s.session = nil
		return nil, &SchedulerError{Kind: KindNoCardsLeft, Message: "no session cards are due"}
	}

	var candidates []*cardMeta
	for _, m := range eligible {
		if s.respectsInterval(m) {
			candidates = append(candidates, m)
		}
	}

	if len(candidates) == 0 {
		var spare []*cardMeta
		for _, m := range s.session {
			if !m.isDue(now, floor) && s.respectsInterval(m) {
				spare = append(spare, m)
			}
		}
		if len(spare) > 0 {
			candidates = append(candidates, spare[s.rng.IntN(len(spare))])
		}
	}

	if len(candidates) == 0 {
		for _, m := range s.all {
			if !m.isDue(now, floor) && s.respectsInterval(m) {
				candidates = append(candidates, m)
				break
			}
		}
	}

	if len(candidates) == 0 {
		candidates = eligible
	}

	chosen := candidates[s.rng.IntN(len(candidates))]
	if chosen.isNew() && anyOrdered(candidates) {
		var fresh []*cardMeta
		for _, m := range candidates {
			if m.isNew() {
				fresh = append(fresh, m)
			}
		}
		chosen = sortByOrder(fresh)[0]
	}
	return chosen.card, nil
}

func (s *Scheduler) respectsInterval(m *cardMeta) bool {
	if !m.seen {
		return true
	}
	return s.Session.ReviewSequenceCount-m.lastSeq >= s.Options.MinReviewInterval
}

func anyOrdered(cards []*cardMeta) bool {
	for _, m := range cards {
		if m.order != nil {
			return true
		}
	}
	return false
}

// CardRated records a rating of card at ratedAt. Any value is accepted and
// mapped onto the four ratings. Scheduling data only changes when the card is
// due or OnlyRateIfDue is off. The store is committed once either way.
func (s *Scheduler) CardRated(ctx context.Context, card *domain.Card, value float64, ratedAt time.Time) error {
	m, ok := s.byID[card.ID()]
	if !ok {
		return fmt.Errorf("%w: card %s is not in the working set", store.ErrNotFound, card.ID())
	}
	log := logger.FromContext(ctx)

	s.Session.ReviewSequenceCount++
	m.lastSeq = s.Session.ReviewSequenceCount
	m.seen = true
	if m.isNew() {
		s.Session.NewCardsSeen++
	}
	s.MarkDirty()

	rating := srs.RatingFromValue(value)
	if m.isDue(ratedAt, s.Options.FloorDueDateMinutes) || !s.Options.OnlyRateIfDue {
		next, err := s.srs.Review(m.state, rating, ratedAt)
		if err != nil {
			return err
		}
		m.state = next
		if err := card.SetMeta(MetaKey, next); err != nil {
			return err
		}
		log.Debug("card rated",
			slog.String("card_id", card.ID()),
			slog.String("rating", rating.String()),
			slog.Time("due", next.Due))
	} else {
		log.Debug("card rated before it was due",
			slog.String("card_id", card.ID()),
			slog.String("rating", rating.String()))
	}

	return s.commit(ctx)
}

// State returns the scheduling state of a card in the working set.
func (s *Scheduler) State(cardID string) (srs.State, bool) {
	m, ok := s.byID[cardID]
	if !ok {
		return srs.State{}, false
	}
	return m.state, true
}

// SessionSize returns the number of cards in the current session.
func (s *Scheduler) SessionSize() int {
	return len(s.session)
}

type persister interface {
	Persist(ctx context.Context) error
}

func (s *Scheduler) commit(ctx context.Context) error {
	p, ok := s.Index().(persister)
	if !ok {
		return domain.ErrDetached
	}
	return p.Persist(ctx)
}
