package entity

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
)

// maxParentDepth bounds parent chain walks so a corrupt chain cannot loop.
const maxParentDepth = 64

// Entity holds the identity and lifecycle state shared by every document kind.
// Document kinds embed it and return it from Object.Base.
//
// An Entity is inert until it has been installed into an Index; until then it
// cannot resolve relations, parents or children.
type Entity struct {
	id          string
	rev         string
	persistedAt *int64
	snapshot    map[string]any

	persist   bool
	deleted   bool
	resolving bool

	self             Object
	index            Index
	embedding        Embedding
	persistIfUnsaved bool
}

// New allocates identity state for a new entity. An empty id is replaced by a
// random UUID.
func New(id string) Entity {
	if id == "" {
		id = uuid.NewString()
	}
	return Entity{id: id}
}

// Restore rebuilds identity state from a durable record. The record's fields
// become the last-persisted snapshot.
func Restore(rec *Record) Entity {
	e := Entity{
		id:       rec.ID,
		rev:      rec.Rev,
		snapshot: Normalize(rec.Fields),
	}
	if rec.LastPersistedTimestamp != nil {
		ts := *rec.LastPersistedTimestamp
		e.persistedAt = &ts
	}
	return e
}

// Bind attaches the entity to the object that embeds it and to the index it is
// installed into. It is called by the index; document code never calls it.
// An entity without a snapshot takes one from its current properties.
func (e *Entity) Bind(self Object, idx Index, embedding Embedding, persistIfUnsaved bool) {
	e.self = self
	e.index = idx
	e.embedding = embedding
	e.persistIfUnsaved = persistIfUnsaved
	if e.snapshot == nil {
		e.snapshot = Normalize(self.Properties())
	}
}

// ID returns the stable identifier.
func (e *Entity) ID() string {
	return e.id
}

// Rev returns the durable revision token, empty if never persisted.
func (e *Entity) Rev() string {
	return e.rev
}

// LastPersisted returns the timestamp of the last successful commit in epoch
// milliseconds.
func (e *Entity) LastPersisted() (int64, bool) {
	if e.persistedAt == nil {
		return 0, false
	}
	return *e.persistedAt, true
}

// Index returns the index the entity is installed into, or nil.
func (e *Entity) Index() Index {
	return e.index
}

// Self returns the object embedding this entity, or nil before binding.
func (e *Entity) Self() Object {
	return e.self
}

// Embedding returns the embedding declared for the entity's type.
func (e *Entity) Embedding() Embedding {
	return e.embedding
}

// ParentID returns the id of the entity this one is embedded in, or its own id
// for a root. An embedded entity with no parent reference returns "".
func (e *Entity) ParentID() string {
	if e.embedding.IsRoot() || e.self == nil {
		return e.id
	}
	parent, _ := e.self.Properties()[e.embedding.Field].(string)
	return parent
}

// IsRoot reports whether the entity owns its own durable record.
func (e *Entity) IsRoot() bool {
	return e.ParentID() == e.id
}

// Root follows the parent chain to the owning root. It fails when a parent is
// missing from the index or the chain does not terminate.
func (e *Entity) Root() (Object, bool) {
	if e.self == nil {
		return nil, false
	}
	current := e.self
	for i := 0; i < maxParentDepth; i++ {
		base := current.Base()
		parentID := base.ParentID()
		if parentID == base.id {
			return current, true
		}
		if parentID == "" || base.index == nil {
			return nil, false
		}
		next, ok := base.index.Get(parentID)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// FlagPersist requests persistence regardless of change detection.
func (e *Entity) FlagPersist() {
	e.persist = true
	e.MarkDirty()
}

// Delete flags the entity for deletion.
func (e *Entity) Delete() {
	e.deleted = true
	e.MarkDirty()
}

// DeleteFlagged reports whether Delete has been called.
func (e *Entity) DeleteFlagged() bool {
	return e.deleted
}

// MarkDirty registers the entity with its index's dirty set.
func (e *Entity) MarkDirty() {
	if e.index != nil {
		e.index.MarkDirty(e.id)
	}
}

// MarkClean removes the entity from its index's dirty set.
func (e *Entity) MarkClean() {
	if e.index != nil {
		e.index.MarkClean(e.id)
	}
}

// ShouldDelete reports whether the entity is flagged for deletion or orphaned.
//
// While the entity is resolving its own relations a re-entrant call only
// reports the explicit flag, so relation cycles terminate.
func (e *Entity) ShouldDelete() bool {
	if e.deleted {
		return true
	}
	if e.resolving {
		return false
	}
	return e.IsOrphaned()
}

// IsOrphaned reports whether any related id is missing from the index or
// refers to an entity that should itself be deleted.
func (e *Entity) IsOrphaned() bool {
	if e.self == nil || e.index == nil || e.resolving {
		return false
	}
	e.resolving = true
	defer func() { e.resolving = false }()

	for _, id := range e.self.RelatedIDs() {
		target, ok := e.index.Get(id)
		if !ok {
			return true
		}
		if target.Base().ShouldDelete() {
			return true
		}
	}
	return false
}

// IsUnsaved reports whether the entity has never been persisted or, for an
// embedded entity, whether it was last persisted before its root.
func (e *Entity) IsUnsaved() bool {
	if e.persistedAt == nil {
		return true
	}
	if e.IsRoot() {
		return false
	}
	root, ok := e.Root()
	if !ok {
		return false
	}
	rootPersisted, ok := root.Base().LastPersisted()
	if !ok {
		return false
	}
	return *e.persistedAt < rootPersisted
}

// HasChanged compares the entity's current properties with the snapshot taken
// at construction or at the last successful commit. Embedded children are not
// part of the comparison.
func (e *Entity) HasChanged() bool {
	if e.self == nil || e.snapshot == nil {
		return true
	}
	return !cmp.Equal(e.snapshot, Normalize(e.self.Properties()), cmpopts.EquateEmpty())
}

// ShouldPersist reports whether the entity needs to be written. Deletion
// always wins.
func (e *Entity) ShouldPersist() bool {
	wants := e.persist || (e.persistIfUnsaved && e.IsUnsaved()) || e.HasChanged()
	return wants && !e.ShouldDelete()
}

// UpdateAfterPersist records a successful commit. The timestamp is propagated
// to every embedded child; the revision token belongs to the root only.
func (e *Entity) UpdateAfterPersist(rev string, timestamp int64) {
	e.persist = false
	if rev != "" {
		e.rev = rev
	}
	e.persistedAt = &timestamp
	if e.self != nil {
		e.snapshot = Normalize(e.self.Properties())
	}
	if e.index == nil {
		return
	}
	for _, child := range e.index.Children(e.id) {
		child.Base().UpdateAfterPersist("", timestamp)
	}
}

// Serialize produces the durable record shape. A non-nil timestamp overrides
// the last-persisted timestamp throughout the tree.
func (e *Entity) Serialize(includeChildren bool, timestamp *int64) Record {
	rec := Record{
		ID:  e.id,
		Rev: e.rev,
	}
	if e.self != nil {
		t := e.self.Type()
		rec.Doctype = t.Doctype
		rec.Subtype = t.Subtype
		props := e.self.Properties()
		rec.Fields = make(map[string]any, len(props))
		for k, v := range props {
			rec.Fields[k] = v
		}
	}

	switch {
	case timestamp != nil:
		ts := *timestamp
		rec.LastPersistedTimestamp = &ts
	case e.persistedAt != nil:
		ts := *e.persistedAt
		rec.LastPersistedTimestamp = &ts
	}

	if includeChildren && e.index != nil {
		for _, child := range e.index.Children(e.id) {
			childRec := child.Base().Serialize(true, timestamp)
			// revision tokens belong to the record, not to embedded entities
			childRec.Rev = ""
			rec.Objects = append(rec.Objects, childRec)
		}
	}
	return rec
}
