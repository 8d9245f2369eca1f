package domain

import "github.com/phrazzld/scry-decks/internal/entity"

// NoteField is a named text field of a note type. It is stored inside the
// note type's record.
type NoteField struct {
	entity.Entity

	NoteTypeID string
	Name       string
}

// NewNoteField creates a field of noteTypeID.
func NewNoteField(id, noteTypeID, name string) (*NoteField, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return &NoteField{Entity: entity.New(id), NoteTypeID: noteTypeID, Name: name}, nil
}

func restoreNoteField(rec *entity.Record) (entity.Object, error) {
	f := &NoteField{Entity: entity.Restore(rec)}
	if err := entity.Decode(rec.Fields, &struct {
		NoteTypeID *string `json:"noteTypeId"`
		Name       *string `json:"name"`
	}{&f.NoteTypeID, &f.Name}); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *NoteField) Base() *entity.Entity { return &f.Entity }
func (f *NoteField) Type() entity.Type    { return NoteFieldDoctype }
func (f *NoteField) RelatedIDs() []string { return []string{f.NoteTypeID} }

func (f *NoteField) Properties() map[string]any {
	return map[string]any{
		"noteTypeId": f.NoteTypeID,
		"name":       f.Name,
	}
}

// SetName renames the field.
func (f *NoteField) SetName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	f.Name = name
	f.MarkDirty()
	return nil
}

// Content returns the field's content on note, if any has been set.
func (f *NoteField) Content(note *Note) (*FieldContent, bool) {
	return lookup[*FieldContent](&f.Entity, entity.CombineIDs(note.ID(), f.ID()))
}

// FieldContent is the text a note holds for one field. It is stored inside
// the note's record; its id combines the note and field ids.
type FieldContent struct {
	entity.Entity

	NoteID  string
	FieldID string
	Text    *string
}

// NewFieldContent creates empty content for the given note and field.
func NewFieldContent(noteID, fieldID string) *FieldContent {
	return &FieldContent{
		Entity:  entity.New(entity.CombineIDs(noteID, fieldID)),
		NoteID:  noteID,
		FieldID: fieldID,
	}
}

func restoreFieldContent(rec *entity.Record) (entity.Object, error) {
	c := &FieldContent{Entity: entity.Restore(rec)}
	if err := entity.Decode(rec.Fields, &struct {
		NoteID  *string  `json:"noteId"`
		FieldID *string  `json:"fieldId"`
		Content **string `json:"content"`
	}{&c.NoteID, &c.FieldID, &c.Text}); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FieldContent) Base() *entity.Entity { return &c.Entity }
func (c *FieldContent) Type() entity.Type    { return FieldContentDoctype }
func (c *FieldContent) RelatedIDs() []string { return []string{c.NoteID, c.FieldID} }

func (c *FieldContent) Properties() map[string]any {
	props := map[string]any{
		"noteId":  c.NoteID,
		"fieldId": c.FieldID,
		"content": nil,
	}
	if c.Text != nil {
		props["content"] = *c.Text
	}
	return props
}

// SetText replaces the content.
func (c *FieldContent) SetText(text string) {
	c.Text = &text
	c.MarkDirty()
}

// Clear empties the content.
func (c *FieldContent) Clear() {
	c.Text = nil
	c.MarkDirty()
}

// IsEmpty reports whether no text has been set.
func (c *FieldContent) IsEmpty() bool {
	return c.Text == nil
}

// String returns the text, or "" when empty.
func (c *FieldContent) String() string {
	if c.Text == nil {
		return ""
	}
	return *c.Text
}
