package domain

import (
	"context"
	"fmt"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Attachment is a document carrying a binary payload, such as an image
// referenced from field content. The payload is stored beside the document
// and is only read on request.
type Attachment struct {
	entity.Entity

	Filename string
	MimeType string

	data    []byte
	pending bool
}

var _ entity.Attachable = (*Attachment)(nil)

// AttachmentName is the name every payload is stored under.
const AttachmentName = "data"

// NewAttachment creates an attachment whose payload is written on the next
// commit.
func NewAttachment(id, filename, mimeType string, data []byte) (*Attachment, error) {
	if filename == "" {
		return nil, ErrEmptyName
	}
	return &Attachment{
		Entity:   entity.New(id),
		Filename: filename,
		MimeType: mimeType,
		data:     data,
		pending:  true,
	}, nil
}

func restoreAttachment(rec *entity.Record) (entity.Object, error) {
	var f struct {
		Attachment struct {
			Filename string `json:"filename"`
			MimeType string `json:"mimetype"`
		} `json:"attachment"`
	}
	if err := entity.Decode(rec.Fields, &f); err != nil {
		return nil, err
	}
	return &Attachment{
		Entity:   entity.Restore(rec),
		Filename: f.Attachment.Filename,
		MimeType: f.Attachment.MimeType,
	}, nil
}

func (a *Attachment) Base() *entity.Entity { return &a.Entity }
func (a *Attachment) Type() entity.Type    { return AttachmentDoctype }
func (a *Attachment) RelatedIDs() []string { return nil }

func (a *Attachment) Properties() map[string]any {
	return map[string]any{
		"attachment": map[string]any{
			"filename": a.Filename,
			"mimetype": a.MimeType,
		},
	}
}

func (a *Attachment) AttachmentName() string { return AttachmentName }

func (a *Attachment) PendingAttachment() (*entity.Attachment, bool) {
	if !a.pending {
		return nil, false
	}
	return &entity.Attachment{Name: AttachmentName, ContentType: a.MimeType, Data: a.data}, true
}

func (a *Attachment) AttachmentStored() {
	a.pending = false
}

// Replace swaps the payload. It is written on the next commit.
func (a *Attachment) Replace(mimeType string, data []byte) {
	a.MimeType = mimeType
	a.data = data
	a.pending = true
	a.FlagPersist()
}

// Fetcher reads attachment payloads from durable storage.
type Fetcher interface {
	FetchAttachment(ctx context.Context, id string) ([]byte, error)
}

// Data returns the payload, reading it through f the first time it is
// needed.
func (a *Attachment) Data(ctx context.Context, f Fetcher) ([]byte, error) {
	if a.data != nil {
		return a.data, nil
	}
	data, err := f.FetchAttachment(ctx, a.ID())
	if err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", a.ID(), err)
	}
	a.data = data
	return data, nil
}
