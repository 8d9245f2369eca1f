package domain

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Card is one studyable pairing of a note and a card template. Its id
// combines the two. Schedulers keep their per-card state in Meta under their
// own key, so a card is only written once some scheduler has reviewed it.
type Card struct {
	entity.Entity

	NoteID         string
	CardTemplateID string
	VariantID      string
	Meta           map[string]any
}

// NewCard creates an unscheduled card.
func NewCard(noteID, templateID string) *Card {
	return &Card{
		Entity:         entity.New(entity.CombineIDs(noteID, templateID)),
		NoteID:         noteID,
		CardTemplateID: templateID,
		Meta:           make(map[string]any),
	}
}

func restoreCard(rec *entity.Record) (entity.Object, error) {
	c := &Card{Entity: entity.Restore(rec)}
	if err := entity.Decode(rec.Fields, &struct {
		NoteID         *string         `json:"noteId"`
		CardTemplateID *string         `json:"cardTemplateId"`
		VariantID      *string         `json:"cardTemplateVariantId"`
		Meta           *map[string]any `json:"cardMeta"`
	}{&c.NoteID, &c.CardTemplateID, &c.VariantID, &c.Meta}); err != nil {
		return nil, err
	}
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	return c, nil
}

func (c *Card) Base() *entity.Entity { return &c.Entity }
func (c *Card) Type() entity.Type    { return CardDoctype }
func (c *Card) RelatedIDs() []string { return []string{c.CardTemplateID, c.NoteID} }

func (c *Card) Properties() map[string]any {
	return map[string]any{
		"noteId":                c.NoteID,
		"cardTemplateId":        c.CardTemplateID,
		"cardTemplateVariantId": optional(c.VariantID),
		"cardMeta":              maps.Clone(c.Meta),
	}
}

// Note returns the card's note.
func (c *Card) Note() (*Note, bool) {
	return lookup[*Note](&c.Entity, c.NoteID)
}

// Template returns the card's template.
func (c *Card) Template() (*CardTemplate, bool) {
	return lookup[*CardTemplate](&c.Entity, c.CardTemplateID)
}

// Order returns the introduction rank inherited from the card's note.
func (c *Card) Order() (int, bool) {
	note, ok := c.Note()
	if !ok || note.Order == nil {
		return 0, false
	}
	return *note.Order, true
}

// SetVariant selects a template variant. An empty id selects the default.
func (c *Card) SetVariant(id string) {
	c.VariantID = id
	c.MarkDirty()
}

// HasMeta reports whether metadata is stored under key.
func (c *Card) HasMeta(key string) bool {
	_, ok := c.Meta[key]
	return ok
}

// GetMeta decodes the metadata stored under key into v. It reports false
// when nothing is stored.
func (c *Card) GetMeta(key string, v any) (bool, error) {
	raw, ok := c.Meta[key]
	if !ok || raw == nil {
		return false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidMeta, key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidMeta, key, err)
	}
	return true, nil
}

// SetMeta stores v under key in its JSON form.
func (c *Card) SetMeta(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMeta, key, err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidMeta, key, err)
	}
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	c.Meta[key] = decoded
	c.MarkDirty()
	return nil
}

// ClearMeta removes the metadata stored under key.
func (c *Card) ClearMeta(key string) {
	delete(c.Meta, key)
	c.MarkDirty()
}
