package domain

import (
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Deck is the root of a deck's object graph. A store holds exactly one deck.
type Deck struct {
	entity.Entity

	Name string
	// ActiveSchedulerID names the scheduler document that schedules the
	// deck's cards. Empty until a scheduler is attached.
	ActiveSchedulerID string

	noteTypes *store.Memo[*NoteType]
	notes     *store.Memo[*Note]
	cards     *store.Memo[*Card]
}

// NewDeck creates a deck. An empty id is replaced by a random one.
func NewDeck(id, name string) (*Deck, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return newDeck(entity.New(id), name, ""), nil
}

func newDeck(base entity.Entity, name, schedulerID string) *Deck {
	return &Deck{
		Entity:            base,
		Name:              name,
		ActiveSchedulerID: schedulerID,
		noteTypes:         store.NewMemo[*NoteType]("notetype"),
		notes:             store.NewMemo[*Note]("note"),
		cards:             store.NewMemo[*Card]("card"),
	}
}

func restoreDeck(rec *entity.Record) (entity.Object, error) {
	var f struct {
		Name              string `json:"name"`
		ActiveSchedulerID string `json:"activeSchedulerId"`
	}
	if err := entity.Decode(rec.Fields, &f); err != nil {
		return nil, err
	}
	return newDeck(entity.Restore(rec), f.Name, f.ActiveSchedulerID), nil
}

func (d *Deck) Base() *entity.Entity { return &d.Entity }
func (d *Deck) Type() entity.Type    { return DeckDoctype }
func (d *Deck) RelatedIDs() []string { return nil }

func (d *Deck) Properties() map[string]any {
	return map[string]any{
		"name":              d.Name,
		"activeSchedulerId": optional(d.ActiveSchedulerID),
	}
}

// SetName renames the deck.
func (d *Deck) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	d.Name = name
	d.MarkDirty()
	return nil
}

// SetActiveScheduler points the deck at another scheduler document. The
// previous scheduler is marked dirty so its relation to the deck is
// re-evaluated on the next commit.
func (d *Deck) SetActiveScheduler(id string) {
	if prev := d.ActiveSchedulerID; prev != "" && prev != id {
		if idx := d.Index(); idx != nil {
			idx.MarkDirty(prev)
		}
	}
	d.ActiveSchedulerID = id
	d.MarkDirty()
}

// CreateNoteType adds a note type to the deck.
func (d *Deck) CreateNoteType(name string) (*NoteType, error) {
	nt, err := NewNoteType("", d.ID(), name)
	if err != nil {
		return nil, err
	}
	if err := install(&d.Entity, nt); err != nil {
		return nil, err
	}
	return nt, nil
}

// AddAttachment stores a binary payload as its own document. The payload is
// written on the next commit.
func (d *Deck) AddAttachment(filename, mimeType string, data []byte) (*Attachment, error) {
	att, err := NewAttachment("", filename, mimeType, data)
	if err != nil {
		return nil, err
	}
	if err := install(&d.Entity, att); err != nil {
		return nil, err
	}
	return att, nil
}

// NoteTypes returns every live note type in the store.
func (d *Deck) NoteTypes() []*NoteType {
	return d.noteTypes.Get(d.Index(), func() []*NoteType {
		return entity.QueryAs[*NoteType](d.Index(), entity.ByDoctype(NoteTypeDoctype.Doctype))
	})
}

// Notes returns every live note in the store.
func (d *Deck) Notes() []*Note {
	return d.notes.Get(d.Index(), func() []*Note {
		return entity.QueryAs[*Note](d.Index(), entity.ByDoctype(NoteDoctype.Doctype))
	})
}

// Cards returns every live card entity in the store. Cards that have not
// been materialised yet are not included; see WorkingSet.
func (d *Deck) Cards() []*Card {
	return d.cards.Get(d.Index(), func() []*Card {
		return entity.QueryAs[*Card](d.Index(), entity.ByDoctype(CardDoctype.Doctype))
	})
}

// CreateMissingCards creates a card for every note and template pair that
// has none and returns how many were created.
func (d *Deck) CreateMissingCards() (int, error) {
	created := 0
	for _, note := range d.Notes() {
		n, err := note.createMissingCards()
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

// WorkingSet materialises missing cards and returns every card of the deck.
func (d *Deck) WorkingSet() ([]*Card, error) {
	if _, err := d.CreateMissingCards(); err != nil {
		return nil, err
	}
	return d.Cards(), nil
}
