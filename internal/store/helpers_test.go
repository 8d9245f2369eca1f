package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/memdb"
	"github.com/phrazzld/scry-decks/internal/store"
)

var (
	groupType  = entity.Type{Doctype: "group", Subtype: "base"}
	memberType = entity.Type{Doctype: "member", Subtype: "text"}
	refType    = entity.Type{Doctype: "ref", Subtype: "base"}
	blobType   = entity.Type{Doctype: "blob", Subtype: "binary"}
)

// group is a root that may relate to other roots.
type group struct {
	entity.Entity
	Name  string
	Links []string
}

func newGroup(id, name string) *group {
	return &group{Entity: entity.New(id), Name: name}
}

func (g *group) Base() *entity.Entity { return &g.Entity }
func (g *group) Type() entity.Type    { return groupType }
func (g *group) RelatedIDs() []string { return g.Links }
func (g *group) Properties() map[string]any {
	return map[string]any{"name": g.Name, "links": g.Links}
}

// member is embedded in the group named by groupId.
type member struct {
	entity.Entity
	GroupID string
	Text    string
	Related []string
}

func newMember(id, groupID, text string) *member {
	return &member{Entity: entity.New(id), GroupID: groupID, Text: text}
}

func (m *member) Base() *entity.Entity { return &m.Entity }
func (m *member) Type() entity.Type    { return memberType }
func (m *member) RelatedIDs() []string { return m.Related }
func (m *member) Properties() map[string]any {
	return map[string]any{"groupId": m.GroupID, "text": m.Text, "related": m.Related}
}

// ref is a root that depends on one other entity and is only written on
// request.
type ref struct {
	entity.Entity
	Target string
}

func newRef(id, target string) *ref {
	return &ref{Entity: entity.New(id), Target: target}
}

func (r *ref) Base() *entity.Entity { return &r.Entity }
func (r *ref) Type() entity.Type    { return refType }
func (r *ref) RelatedIDs() []string {
	if r.Target == "" {
		return nil
	}
	return []string{r.Target}
}
func (r *ref) Properties() map[string]any {
	return map[string]any{"target": r.Target}
}

// blob carries a binary payload.
type blob struct {
	entity.Entity
	Name    string
	pending []byte
}

func newBlob(id string, data []byte) *blob {
	return &blob{Entity: entity.New(id), Name: id, pending: data}
}

func (b *blob) Base() *entity.Entity { return &b.Entity }
func (b *blob) Type() entity.Type    { return blobType }
func (b *blob) RelatedIDs() []string { return nil }
func (b *blob) Properties() map[string]any {
	return map[string]any{"name": b.Name}
}
func (b *blob) AttachmentName() string { return "data" }
func (b *blob) AttachmentStored()      { b.pending = nil }
func (b *blob) PendingAttachment() (*entity.Attachment, bool) {
	if b.pending == nil {
		return nil, false
	}
	return &entity.Attachment{Name: "data", ContentType: "application/octet-stream", Data: b.pending}, true
}

func newRegistry(t *testing.T) *store.Registry {
	t.Helper()

	r := store.NewRegistry()
	require.NoError(t, r.Register(store.Registration{
		Type:             groupType,
		Embedding:        entity.Root(),
		PersistIfUnsaved: true,
		New: func(rec *entity.Record) (entity.Object, error) {
			var f struct {
				Name  string   `json:"name"`
				Links []string `json:"links"`
			}
			if err := entity.Decode(rec.Fields, &f); err != nil {
				return nil, err
			}
			return &group{Entity: entity.Restore(rec), Name: f.Name, Links: f.Links}, nil
		},
	}))
	require.NoError(t, r.Register(store.Registration{
		Type:             memberType,
		Embedding:        entity.EmbeddedIn("groupId"),
		PersistIfUnsaved: true,
		New: func(rec *entity.Record) (entity.Object, error) {
			var f struct {
				GroupID string   `json:"groupId"`
				Text    string   `json:"text"`
				Related []string `json:"related"`
			}
			if err := entity.Decode(rec.Fields, &f); err != nil {
				return nil, err
			}
			return &member{Entity: entity.Restore(rec), GroupID: f.GroupID, Text: f.Text, Related: f.Related}, nil
		},
	}))
	require.NoError(t, r.Register(store.Registration{
		Type:      refType,
		Embedding: entity.Root(),
		New: func(rec *entity.Record) (entity.Object, error) {
			target, _ := rec.Fields["target"].(string)
			return &ref{Entity: entity.Restore(rec), Target: target}, nil
		},
	}))
	require.NoError(t, r.Register(store.Registration{
		Type:             blobType,
		Embedding:        entity.Root(),
		PersistIfUnsaved: true,
		New: func(rec *entity.Record) (entity.Object, error) {
			name, _ := rec.Fields["name"].(string)
			return &blob{Entity: entity.Restore(rec), Name: name}, nil
		},
	}))
	return r
}

// tickingClock advances one second per reading.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newBackend() *memdb.Backend {
	return memdb.New(logger.Discard())
}

func newStore(t *testing.T, backend store.Backend) *store.Store {
	t.Helper()
	return store.New(backend, newRegistry(t), logger.Discard(), store.WithClock(tickingClock()))
}

func mustSet(t *testing.T, s *store.Store, objs ...entity.Object) {
	t.Helper()
	for _, obj := range objs {
		require.NoError(t, s.SetObject(obj, true))
	}
}

// faultyBackend records calls and fails them on demand.
type faultyBackend struct {
	store.Backend

	failPut        map[string]error
	failAttachment error
	puts           []string
	removes        []string
}

func newFaultyBackend() *faultyBackend {
	return &faultyBackend{Backend: newBackend(), failPut: make(map[string]error)}
}

func (f *faultyBackend) Put(ctx context.Context, rec *entity.Record) (string, error) {
	if err := f.failPut[rec.ID]; err != nil {
		return "", err
	}
	f.puts = append(f.puts, rec.ID)
	return f.Backend.Put(ctx, rec)
}

func (f *faultyBackend) Remove(ctx context.Context, id, rev string) error {
	f.removes = append(f.removes, id)
	return f.Backend.Remove(ctx, id, rev)
}

func (f *faultyBackend) PutAttachment(ctx context.Context, id, rev string, att entity.Attachment) (string, error) {
	if f.failAttachment != nil {
		return "", f.failAttachment
	}
	return f.Backend.PutAttachment(ctx, id, rev, att)
}

func ids(objs []entity.Object) []string {
	out := make([]string, 0, len(objs))
	for _, obj := range objs {
		out = append(out, obj.Base().ID())
	}
	return out
}

func timestamp(ms int64) *int64 {
	return &ms
}
