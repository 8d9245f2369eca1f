package scheduler

import (
	"slices"
	"time"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/domain/srs"
)

// Session counts the ratings of the current study day.
type Session struct {
	// ReviewSequenceCount is the number of ratings ever given. It never
	// resets and spaces repeated cards apart.
	ReviewSequenceCount int `json:"reviewSequenceCount"`
	// StartedAt is when the current day's session began.
	StartedAt time.Time `json:"sessionStartedAt"`
	// StartedAtSequenceCount is ReviewSequenceCount at StartedAt.
	StartedAtSequenceCount int `json:"startedAtSequenceCount"`
	// NewCardsSeen counts new cards rated since StartedAt.
	NewCardsSeen int `json:"newCardsSeen"`
}

func newSession(now time.Time) Session {
	return Session{StartedAt: now}
}

// rollover starts a new session when now falls on another calendar day than
// StartedAt, in now's location. It reports whether it did.
func (s *Session) rollover(now time.Time) bool {
	y1, m1, d1 := s.StartedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return false
	}
	s.StartedAt = now
	s.StartedAtSequenceCount = s.ReviewSequenceCount
	s.NewCardsSeen = 0
	return true
}

// cardMeta is the scheduler's working view of one card.
type cardMeta struct {
	card  *domain.Card
	state srs.State
	order *int

	// lastSeq is the review sequence number of the card's last rating in
	// this process; seen is false until it has been rated once.
	lastSeq int
	seen    bool
}

func (m *cardMeta) isNew() bool {
	return m.state.IsNew()
}

func (m *cardMeta) due(floorMinutes int) time.Time {
	return floorTime(m.state.Due, floorMinutes)
}

func (m *cardMeta) isDue(at time.Time, floorMinutes int) bool {
	return !m.due(floorMinutes).After(at)
}

// floorTime rounds t down to a multiple of minutes since the Unix epoch.
func floorTime(t time.Time, minutes int) time.Time {
	if minutes <= 0 {
		return t
	}
	step := int64(minutes) * int64(time.Minute/time.Millisecond)
	ms := t.UnixMilli()
	floored := ms - ms%step
	if ms < 0 && ms%step != 0 {
		floored -= step
	}
	return time.UnixMilli(floored).In(t.Location())
}

// sortByOrder orders cards by ascending order; unordered cards go last.
func sortByOrder(cards []*cardMeta) []*cardMeta {
	out := slices.Clone(cards)
	slices.SortStableFunc(out, func(a, b *cardMeta) int {
		switch {
		case a.order == nil && b.order == nil:
			return 0
		case a.order == nil:
			return 1
		case b.order == nil:
			return -1
		default:
			return *a.order - *b.order
		}
	})
	return out
}
