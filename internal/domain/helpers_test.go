package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/memdb"
	"github.com/phrazzld/scry-decks/internal/store"
)

func newStore(t *testing.T, backend store.Backend) *store.Store {
	t.Helper()
	registry, err := domain.NewRegistry()
	require.NoError(t, err)
	return store.New(backend, registry, logger.Discard())
}

// fixture is a deck with one two-field note type.
type fixture struct {
	backend  *memdb.Backend
	store    *store.Store
	deck     *domain.Deck
	noteType *domain.NoteType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := memdb.New(logger.Discard())
	s := newStore(t, backend)
	deck, err := domain.NewDeck("deck-1", "Spanish")
	require.NoError(t, err)
	require.NoError(t, s.SetObject(deck, true))

	nt, err := deck.CreateNoteType("Basic")
	require.NoError(t, err)
	_, err = nt.AddField("Front")
	require.NoError(t, err)
	_, err = nt.AddField("Back")
	require.NoError(t, err)

	return &fixture{backend: backend, store: s, deck: deck, noteType: nt}
}

func (f *fixture) addNote(t *testing.T, front, back string) *domain.Note {
	t.Helper()
	note, err := f.noteType.CreateNote()
	require.NoError(t, err)
	require.NoError(t, note.SetField("Front", front))
	require.NoError(t, note.SetField("Back", back))
	return note
}

// recordsByDoctype lists the backend's records grouped by doctype.
func recordsByDoctype(t *testing.T, b store.Backend) map[string][]*entity.Record {
	t.Helper()
	records, err := b.BulkList(context.Background())
	require.NoError(t, err)
	out := make(map[string][]*entity.Record)
	for _, rec := range records {
		out[rec.Doctype] = append(out[rec.Doctype], rec)
	}
	return out
}
