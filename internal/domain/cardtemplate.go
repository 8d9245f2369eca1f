package domain

import "github.com/phrazzld/scry-decks/internal/entity"

// CardTemplate turns a note into one studyable card. It is stored inside the
// note type's record.
type CardTemplate struct {
	entity.Entity

	NoteTypeID string
	Name       string
}

// NewCardTemplate creates a template of noteTypeID.
func NewCardTemplate(id, noteTypeID, name string) (*CardTemplate, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return &CardTemplate{Entity: entity.New(id), NoteTypeID: noteTypeID, Name: name}, nil
}

func restoreCardTemplate(rec *entity.Record) (entity.Object, error) {
	t := &CardTemplate{Entity: entity.Restore(rec)}
	if err := entity.Decode(rec.Fields, &struct {
		NoteTypeID *string `json:"noteTypeId"`
		Name       *string `json:"name"`
	}{&t.NoteTypeID, &t.Name}); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *CardTemplate) Base() *entity.Entity { return &t.Entity }
func (t *CardTemplate) Type() entity.Type    { return CardTemplateDoctype }
func (t *CardTemplate) RelatedIDs() []string { return []string{t.NoteTypeID} }

func (t *CardTemplate) Properties() map[string]any {
	return map[string]any{
		"noteTypeId": t.NoteTypeID,
		"name":       t.Name,
	}
}

// SetName renames the template.
func (t *CardTemplate) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	t.Name = name
	t.MarkDirty()
	return nil
}
