package domain

import (
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

// Doctype tags of the deck model.
var (
	DeckDoctype         = entity.Type{Doctype: "deck", Subtype: "deck"}
	NoteTypeDoctype     = entity.Type{Doctype: "notetype", Subtype: "base"}
	NoteFieldDoctype    = entity.Type{Doctype: "notefield", Subtype: "text"}
	FieldContentDoctype = entity.Type{Doctype: "notefieldcontent", Subtype: "text"}
	CardTemplateDoctype = entity.Type{Doctype: "cardtemplate", Subtype: "base"}
	NoteDoctype         = entity.Type{Doctype: "note", Subtype: "note"}
	CardDoctype         = entity.Type{Doctype: "card", Subtype: "base"}
	AttachmentDoctype   = entity.Type{Doctype: "attachment", Subtype: "binary"}
)

// Register adds every deck doctype to r.
func Register(r *store.Registry) error {
	regs := []store.Registration{
		{Type: DeckDoctype, Embedding: entity.Root(), PersistIfUnsaved: true, New: restoreDeck},
		{Type: NoteTypeDoctype, Embedding: entity.Root(), PersistIfUnsaved: true, New: restoreNoteType},
		{Type: NoteFieldDoctype, Embedding: entity.EmbeddedIn("noteTypeId"), PersistIfUnsaved: true, New: restoreNoteField},
		{Type: CardTemplateDoctype, Embedding: entity.EmbeddedIn("noteTypeId"), PersistIfUnsaved: true, New: restoreCardTemplate},
		{Type: NoteDoctype, Embedding: entity.Root(), New: restoreNote},
		{Type: FieldContentDoctype, Embedding: entity.EmbeddedIn("noteId"), PersistIfUnsaved: true, New: restoreFieldContent},
		{Type: CardDoctype, Embedding: entity.Root(), New: restoreCard},
		{Type: AttachmentDoctype, Embedding: entity.Root(), PersistIfUnsaved: true, New: restoreAttachment},
	}
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every deck doctype.
func NewRegistry() (*store.Registry, error) {
	r := store.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// lookup returns the object with the given id in e's store if it has type T.
func lookup[T entity.Object](e *entity.Entity, id string) (T, bool) {
	var zero T
	idx := e.Index()
	if idx == nil || id == "" {
		return zero, false
	}
	obj, ok := idx.Get(id)
	if !ok {
		return zero, false
	}
	t, ok := obj.(T)
	return t, ok
}

// install puts a new object into e's store.
func install(e *entity.Entity, obj entity.Object) error {
	idx := e.Index()
	if idx == nil {
		return ErrDetached
	}
	return idx.SetObject(obj, true)
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
