// Package memdb provides an in-memory revisioned document backend. It backs
// tests and the "memory" database driver.
package memdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

type document struct {
	rev  string
	body []byte
}

// Backend stores records as JSON in memory.
type Backend struct {
	mu          sync.RWMutex
	docs        map[string]document
	attachments map[string]map[string]entity.Attachment
	logger      *slog.Logger
}

// Verify interface compliance at compile time
var _ store.Backend = (*Backend)(nil)

// New creates an empty Backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		docs:        make(map[string]document),
		attachments: make(map[string]map[string]entity.Attachment),
		logger:      logger.With(slog.String("component", "memdb")),
	}
}

// Get implements store.Backend.
func (b *Backend) Get(ctx context.Context, id string) (*entity.Record, error) {
	b.mu.RLock()
	doc, ok := b.docs[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return decode(doc)
}

// Put implements store.Backend.
func (b *Backend) Put(ctx context.Context, rec *entity.Record) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", store.NewStoreError(rec.ID, "put", "failed to encode record", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.docs[rec.ID]
	if current.rev != rec.Rev || (!exists && rec.Rev != "") {
		return "", store.NewStoreError(rec.ID, "put", "stale revision "+rec.Rev, store.ErrConflict)
	}
	rev := store.NextRev(current.rev)
	b.docs[rec.ID] = document{rev: rev, body: body}
	b.logger.Debug("stored record", slog.String("id", rec.ID), slog.String("rev", rev))
	return rev, nil
}

// Remove implements store.Backend.
func (b *Backend) Remove(ctx context.Context, id, rev string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.docs[id]
	if !exists {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if current.rev != rev {
		return store.NewStoreError(id, "remove", "stale revision "+rev, store.ErrConflict)
	}
	delete(b.docs, id)
	delete(b.attachments, id)
	return nil
}

// BulkList implements store.Backend. Records are returned sorted by id.
func (b *Backend) BulkList(ctx context.Context) ([]*entity.Record, error) {
	b.mu.RLock()
	ids := make([]string, 0, len(b.docs))
	for id := range b.docs {
		ids = append(ids, id)
	}
	docs := make([]document, 0, len(ids))
	sort.Strings(ids)
	for _, id := range ids {
		docs = append(docs, b.docs[id])
	}
	b.mu.RUnlock()

	out := make([]*entity.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// PutAttachment implements store.Backend.
func (b *Backend) PutAttachment(ctx context.Context, id, rev string, att entity.Attachment) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, exists := b.docs[id]
	if !exists {
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if current.rev != rev {
		return "", store.NewStoreError(id, "put attachment", "stale revision "+rev, store.ErrConflict)
	}

	if b.attachments[id] == nil {
		b.attachments[id] = make(map[string]entity.Attachment)
	}
	b.attachments[id][att.Name] = entity.Attachment{
		Name:        att.Name,
		ContentType: att.ContentType,
		Data:        bytes.Clone(att.Data),
	}
	current.rev = store.NextRev(current.rev)
	b.docs[id] = current
	return current.rev, nil
}

// GetAttachment implements store.Backend.
func (b *Backend) GetAttachment(ctx context.Context, id, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	att, ok := b.attachments[id][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrAttachmentMissing, id, name)
	}
	return bytes.Clone(att.Data), nil
}

// Len returns the number of stored records.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}

func decode(doc document) (*entity.Record, error) {
	var rec entity.Record
	if err := json.Unmarshal(doc.body, &rec); err != nil {
		return nil, err
	}
	rec.Rev = doc.rev
	return &rec, nil
}
