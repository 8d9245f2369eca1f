// Package storetest holds the behavioural contract every store.Backend must
// satisfy. Backend packages run it from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

// NewBackend returns an empty backend for one subtest.
type NewBackend func(t *testing.T) store.Backend

// Record builds a root record with the given fields.
func Record(id string, fields map[string]any, children ...entity.Record) *entity.Record {
	ts := int64(1700000000000)
	return &entity.Record{
		ID:                     id,
		LastPersistedTimestamp: &ts,
		Doctype:                "deck",
		Subtype:                "deck",
		Fields:                 fields,
		Objects:                children,
	}
}

// Run executes the contract suite.
func Run(t *testing.T, newBackend NewBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		b := newBackend(t)
		child := *Record("c1", map[string]any{"parent": "d1", "text": "hi"})
		rev, err := b.Put(ctx, Record("d1", map[string]any{"name": "Spanish"}, child))
		require.NoError(t, err)
		assert.Equal(t, 1, store.RevGeneration(rev))

		got, err := b.Get(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, rev, got.Rev)
		assert.Equal(t, "Spanish", got.Fields["name"])
		assert.Equal(t, int64(1700000000000), got.Timestamp())
		require.Len(t, got.Objects, 1)
		assert.Equal(t, "hi", got.Objects[0].Fields["text"])
	})

	t.Run("get missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("revision tokens guard writes", func(t *testing.T) {
		b := newBackend(t)
		rec := Record("d1", map[string]any{"name": "a"})
		first, err := b.Put(ctx, rec)
		require.NoError(t, err)

		_, err = b.Put(ctx, Record("d1", map[string]any{"name": "b"}))
		assert.ErrorIs(t, err, store.ErrConflict, "creating over an existing record")

		stale := Record("d1", map[string]any{"name": "c"})
		stale.Rev = "1-deadbeef"
		_, err = b.Put(ctx, stale)
		assert.ErrorIs(t, err, store.ErrConflict, "stale token")

		next := Record("d1", map[string]any{"name": "d"})
		next.Rev = first
		second, err := b.Put(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, 2, store.RevGeneration(second))
		assert.NotEqual(t, first, second)

		ghost := Record("ghost", nil)
		ghost.Rev = "3-abc"
		_, err = b.Put(ctx, ghost)
		assert.ErrorIs(t, err, store.ErrConflict, "token for a record that does not exist")
	})

	t.Run("remove", func(t *testing.T) {
		b := newBackend(t)
		rev, err := b.Put(ctx, Record("d1", nil))
		require.NoError(t, err)

		assert.ErrorIs(t, b.Remove(ctx, "d1", "9-zzz"), store.ErrConflict)
		require.NoError(t, b.Remove(ctx, "d1", rev))

		_, err = b.Get(ctx, "d1")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, b.Remove(ctx, "d1", rev), store.ErrNotFound)
	})

	t.Run("bulk list", func(t *testing.T) {
		b := newBackend(t)
		for _, id := range []string{"b", "a", "_design/x"} {
			_, err := b.Put(ctx, Record(id, map[string]any{"name": id}))
			require.NoError(t, err)
		}
		records, err := b.BulkList(ctx)
		require.NoError(t, err)

		ids := make([]string, 0, len(records))
		for _, rec := range records {
			assert.NotEmpty(t, rec.Rev)
			ids = append(ids, rec.ID)
		}
		assert.ElementsMatch(t, []string{"a", "b", "_design/x"}, ids)
	})

	t.Run("attachments", func(t *testing.T) {
		b := newBackend(t)
		rev, err := b.Put(ctx, Record("a1", map[string]any{"name": "clip"}))
		require.NoError(t, err)

		_, err = b.GetAttachment(ctx, "a1", "data")
		assert.ErrorIs(t, err, store.ErrAttachmentMissing)

		att := entity.Attachment{Name: "data", ContentType: "audio/mpeg", Data: []byte{1, 2, 3}}
		_, err = b.PutAttachment(ctx, "a1", "1-stale", att)
		assert.ErrorIs(t, err, store.ErrConflict)

		attRev, err := b.PutAttachment(ctx, "a1", rev, att)
		require.NoError(t, err)
		assert.Equal(t, 2, store.RevGeneration(attRev))

		data, err := b.GetAttachment(ctx, "a1", "data")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)

		update := Record("a1", map[string]any{"name": "renamed"})
		update.Rev = attRev
		_, err = b.Put(ctx, update)
		require.NoError(t, err)
		data, err = b.GetAttachment(ctx, "a1", "data")
		require.NoError(t, err, "document writes keep attachments")
		assert.Equal(t, []byte{1, 2, 3}, data)
	})
}
