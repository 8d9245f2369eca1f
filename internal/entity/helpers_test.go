package entity_test

import (
	"github.com/phrazzld/scry-decks/internal/entity"
)

var (
	folderType = entity.Type{Doctype: "folder", Subtype: "base"}
	itemType   = entity.Type{Doctype: "item", Subtype: "text"}
)

type folder struct {
	entity.Entity
	Name  string
	Links []string
}

func newFolder(id, name string) *folder {
	return &folder{Entity: entity.New(id), Name: name}
}

func (f *folder) Base() *entity.Entity { return &f.Entity }
func (f *folder) Type() entity.Type    { return folderType }
func (f *folder) RelatedIDs() []string { return f.Links }
func (f *folder) Properties() map[string]any {
	return map[string]any{"name": f.Name, "links": f.Links}
}

type item struct {
	entity.Entity
	FolderID string
	Text     string
	Related  []string
}

func newItem(id, folderID, text string) *item {
	return &item{Entity: entity.New(id), FolderID: folderID, Text: text}
}

func (i *item) Base() *entity.Entity { return &i.Entity }
func (i *item) Type() entity.Type    { return itemType }
func (i *item) RelatedIDs() []string { return i.Related }
func (i *item) Properties() map[string]any {
	return map[string]any{"folderId": i.FolderID, "text": i.Text}
}

// memIndex is a minimal Index for exercising entities without a store.
type memIndex struct {
	objects map[string]entity.Object
	order   []string
	dirty   map[string]bool
}

func newMemIndex() *memIndex {
	return &memIndex{
		objects: make(map[string]entity.Object),
		dirty:   make(map[string]bool),
	}
}

func (m *memIndex) Get(id string) (entity.Object, bool) {
	obj, ok := m.objects[id]
	return obj, ok
}

func (m *memIndex) Query(f entity.Filter, includeDeleted bool) []entity.Object {
	var out []entity.Object
	for _, id := range m.order {
		if obj, ok := m.objects[id]; ok && obj.Base().Matches(f, includeDeleted) {
			out = append(out, obj)
		}
	}
	return out
}

func (m *memIndex) Children(id string) []entity.Object {
	var out []entity.Object
	for _, childID := range m.order {
		obj, ok := m.objects[childID]
		if !ok || childID == id {
			continue
		}
		if obj.Base().ParentID() == id {
			out = append(out, obj)
		}
	}
	return out
}

func (m *memIndex) SetObject(obj entity.Object, checkUnsaved bool) error {
	emb := entity.Root()
	if obj.Type() == itemType {
		emb = entity.EmbeddedIn("folderId")
	}
	obj.Base().Bind(obj, m, emb, true)
	id := obj.Base().ID()
	if _, exists := m.objects[id]; !exists {
		m.order = append(m.order, id)
	}
	m.objects[id] = obj
	if checkUnsaved && obj.Base().ShouldPersist() {
		m.MarkDirty(id)
	}
	return nil
}

func (m *memIndex) MarkDirty(id string)           { m.dirty[id] = true }
func (m *memIndex) MarkClean(id string)           { delete(m.dirty, id) }
func (m *memIndex) Version(doctype string) uint64 { return 0 }
