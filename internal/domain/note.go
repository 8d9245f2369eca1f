package domain

import (
	"fmt"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Note holds one item of study. Its field contents are stored inside its
// record; its cards are root documents of their own.
type Note struct {
	entity.Entity

	NoteTypeID string
	// Order ranks new cards of this note for introduction. Nil means
	// unordered; unordered notes come after ordered ones.
	Order *int
}

// NewNote creates a note of noteTypeID.
func NewNote(id, noteTypeID string) *Note {
	return &Note{Entity: entity.New(id), NoteTypeID: noteTypeID}
}

func restoreNote(rec *entity.Record) (entity.Object, error) {
	n := &Note{Entity: entity.Restore(rec)}
	if err := entity.Decode(rec.Fields, &struct {
		NoteTypeID *string `json:"noteTypeId"`
		Order      **int   `json:"order"`
	}{&n.NoteTypeID, &n.Order}); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Note) Base() *entity.Entity { return &n.Entity }
func (n *Note) Type() entity.Type    { return NoteDoctype }
func (n *Note) RelatedIDs() []string { return []string{n.NoteTypeID} }

func (n *Note) Properties() map[string]any {
	props := map[string]any{
		"noteTypeId": n.NoteTypeID,
		"order":      nil,
	}
	if n.Order != nil {
		props["order"] = *n.Order
	}
	return props
}

// NoteType returns the note's type.
func (n *Note) NoteType() (*NoteType, bool) {
	return lookup[*NoteType](&n.Entity, n.NoteTypeID)
}

// SetOrder sets the introduction rank of the note's new cards.
func (n *Note) SetOrder(order int) {
	n.Order = &order
	n.MarkDirty()
}

// ClearOrder makes the note unordered.
func (n *Note) ClearOrder() {
	n.Order = nil
	n.MarkDirty()
}

// Contents returns the note's field contents. Deleted contents are included
// when includeDeleted is set.
func (n *Note) Contents(includeDeleted bool) []*FieldContent {
	idx := n.Index()
	if idx == nil {
		return nil
	}
	return entity.Collect[*FieldContent](idx.Query(entity.Filter{
		Include: map[string]any{"doctype": FieldContentDoctype.Doctype, "noteId": n.ID()},
	}, includeDeleted))
}

// SetField sets the text of the named field, creating its content on first
// use.
func (n *Note) SetField(name, text string) error {
	nt, ok := n.NoteType()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoteTypeNotFound, n.NoteTypeID)
	}
	field, ok := nt.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q on note type %q", ErrFieldNotFound, name, nt.Name)
	}
	content, ok := field.Content(n)
	if !ok {
		content = NewFieldContent(n.ID(), field.ID())
		if err := install(&n.Entity, content); err != nil {
			return err
		}
	}
	content.SetText(text)
	return nil
}

// Field returns the text of the named field, or "" if it has none.
func (n *Note) Field(name string) (string, error) {
	nt, ok := n.NoteType()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoteTypeNotFound, n.NoteTypeID)
	}
	field, ok := nt.Field(name)
	if !ok {
		return "", fmt.Errorf("%w: %q on note type %q", ErrFieldNotFound, name, nt.Name)
	}
	content, ok := field.Content(n)
	if !ok {
		return "", nil
	}
	return content.String(), nil
}

// CardFor returns the note's card for a template, creating it if missing.
func (n *Note) CardFor(templateID string) (*Card, error) {
	if card, ok := lookup[*Card](&n.Entity, entity.CombineIDs(n.ID(), templateID)); ok {
		return card, nil
	}
	card := NewCard(n.ID(), templateID)
	if err := install(&n.Entity, card); err != nil {
		return nil, err
	}
	return card, nil
}

// Cards returns one card per template of the note's type, creating missing
// ones.
func (n *Note) Cards() ([]*Card, error) {
	nt, ok := n.NoteType()
	if !ok {
		return nil, nil
	}
	templates := nt.Templates()
	cards := make([]*Card, 0, len(templates))
	for _, tmpl := range templates {
		card, err := n.CardFor(tmpl.ID())
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (n *Note) createMissingCards() (int, error) {
	nt, ok := n.NoteType()
	if !ok {
		return 0, nil
	}
	created := 0
	for _, tmpl := range nt.Templates() {
		if _, ok := lookup[*Card](&n.Entity, entity.CombineIDs(n.ID(), tmpl.ID())); ok {
			continue
		}
		if _, err := n.CardFor(tmpl.ID()); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Delete flags the note, its field contents and its cards for deletion.
func (n *Note) Delete() {
	n.Entity.Delete()
	for _, c := range n.Contents(true) {
		c.Entity.Delete()
	}
	idx := n.Index()
	if idx == nil {
		return
	}
	cards := idx.Query(entity.Filter{
		Include: map[string]any{"doctype": CardDoctype.Doctype, "noteId": n.ID()},
	}, true)
	for _, card := range cards {
		card.Base().Delete()
	}
}
