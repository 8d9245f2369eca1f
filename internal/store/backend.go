package store

import (
	"context"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Backend is a revisioned document store with attachment support.
//
// Every successful write returns the record's new revision token. Writes and
// removals that carry a stale token fail with ErrConflict; a record written
// for the first time carries no token.
type Backend interface {
	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*entity.Record, error)

	// Put writes a record and returns its new revision token.
	Put(ctx context.Context, rec *entity.Record) (string, error)

	// Remove deletes the record with the given id and revision token.
	Remove(ctx context.Context, id, rev string) error

	// BulkList returns every record in the store.
	BulkList(ctx context.Context) ([]*entity.Record, error)

	// PutAttachment stores a binary payload beside the record and returns
	// the record's new revision token.
	PutAttachment(ctx context.Context, id, rev string, att entity.Attachment) (string, error)

	// GetAttachment returns a stored payload or ErrAttachmentMissing.
	GetAttachment(ctx context.Context, id, name string) ([]byte, error)
}

// Progress observes commit batches. Calls carry no ordering guarantee.
type Progress interface {
	OnProgress(ctx context.Context, completed, total int)
}

// ProgressFunc adapts a function to the Progress interface.
type ProgressFunc func(ctx context.Context, completed, total int)

// OnProgress implements Progress.
func (f ProgressFunc) OnProgress(ctx context.Context, completed, total int) {
	f(ctx, completed, total)
}
