package domain

import (
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

// NoteType defines the fields a note carries and the card templates each of
// its notes is studied through. Fields and templates are stored inside the
// note type's record.
type NoteType struct {
	entity.Entity

	DeckID string
	Name   string

	fields    *store.Memo[*NoteField]
	templates *store.Memo[*CardTemplate]
	notes     *store.Memo[*Note]
}

// NewNoteType creates a note type belonging to deckID.
func NewNoteType(id, deckID, name string) (*NoteType, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return newNoteType(entity.New(id), deckID, name), nil
}

func newNoteType(base entity.Entity, deckID, name string) *NoteType {
	return &NoteType{
		Entity:    base,
		DeckID:    deckID,
		Name:      name,
		fields:    store.NewMemo[*NoteField]("notefield"),
		templates: store.NewMemo[*CardTemplate]("cardtemplate"),
		notes:     store.NewMemo[*Note]("note"),
	}
}

func restoreNoteType(rec *entity.Record) (entity.Object, error) {
	var f struct {
		DeckID string `json:"deckId"`
		Name   string `json:"name"`
	}
	if err := entity.Decode(rec.Fields, &f); err != nil {
		return nil, err
	}
	return newNoteType(entity.Restore(rec), f.DeckID, f.Name), nil
}

func (nt *NoteType) Base() *entity.Entity { return &nt.Entity }
func (nt *NoteType) Type() entity.Type    { return NoteTypeDoctype }

func (nt *NoteType) RelatedIDs() []string {
	if nt.DeckID == "" {
		return nil
	}
	return []string{nt.DeckID}
}

func (nt *NoteType) Properties() map[string]any {
	return map[string]any{
		"deckId": nt.DeckID,
		"name":   nt.Name,
	}
}

// SetName renames the note type.
func (nt *NoteType) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	nt.Name = name
	nt.MarkDirty()
	return nil
}

// Fields returns the note type's live fields in creation order.
func (nt *NoteType) Fields() []*NoteField {
	return nt.fields.Get(nt.Index(), func() []*NoteField {
		return entity.QueryAs[*NoteField](nt.Index(), entity.Filter{
			Include: map[string]any{"doctype": NoteFieldDoctype.Doctype, "noteTypeId": nt.ID()},
		})
	})
}

// Field returns the live field with the given name.
func (nt *NoteType) Field(name string) (*NoteField, bool) {
	for _, f := range nt.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Templates returns the note type's live card templates in creation order.
func (nt *NoteType) Templates() []*CardTemplate {
	return nt.templates.Get(nt.Index(), func() []*CardTemplate {
		return entity.QueryAs[*CardTemplate](nt.Index(), entity.Filter{
			Include: map[string]any{"doctype": CardTemplateDoctype.Doctype, "noteTypeId": nt.ID()},
		})
	})
}

// Notes returns the live notes of this type.
func (nt *NoteType) Notes() []*Note {
	return nt.notes.Get(nt.Index(), func() []*Note {
		return entity.QueryAs[*Note](nt.Index(), entity.Filter{
			Include: map[string]any{"doctype": NoteDoctype.Doctype, "noteTypeId": nt.ID()},
		})
	})
}

// AddField adds a text field.
func (nt *NoteType) AddField(name string) (*NoteField, error) {
	field, err := NewNoteField("", nt.ID(), name)
	if err != nil {
		return nil, err
	}
	if err := install(&nt.Entity, field); err != nil {
		return nil, err
	}
	return field, nil
}

// AddTemplate adds a card template and creates its card for every existing
// note.
func (nt *NoteType) AddTemplate(name string) (*CardTemplate, error) {
	tmpl, err := NewCardTemplate("", nt.ID(), name)
	if err != nil {
		return nil, err
	}
	if err := install(&nt.Entity, tmpl); err != nil {
		return nil, err
	}
	for _, note := range nt.Notes() {
		if _, err := note.CardFor(tmpl.ID()); err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// CreateNote adds an empty note together with one card per template. The
// note is written on the next commit even if no field is ever set.
func (nt *NoteType) CreateNote() (*Note, error) {
	note := NewNote("", nt.ID())
	if err := install(&nt.Entity, note); err != nil {
		return nil, err
	}
	note.FlagPersist()
	if _, err := note.createMissingCards(); err != nil {
		return nil, err
	}
	return note, nil
}
