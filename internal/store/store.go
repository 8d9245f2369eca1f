package store

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Store is the in-memory index of a deck's object graph.
type Store struct {
	backend  Backend
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time

	// commitMu admits one commit batch or load at a time.
	commitMu sync.Mutex

	objects  map[string]entity.Object
	order    []string
	dirty    map[string]struct{}
	versions map[string]uint64
	children map[string][]string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used to stamp commits.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Verify interface compliance at compile time
var _ entity.Index = (*Store)(nil)

// New creates a Store over backend using the types in registry.
// It panics if backend or registry is nil.
func New(backend Backend, registry *Registry, logger *slog.Logger, opts ...Option) *Store {
	if backend == nil {
		panic("backend cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		backend:  backend,
		registry: registry,
		logger:   logger.With(slog.String("component", "object_store")),
		now:      time.Now,
		objects:  make(map[string]entity.Object),
		dirty:    make(map[string]struct{}),
		versions: make(map[string]uint64),
		children: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the store resolves types with.
func (s *Store) Registry() *Registry {
	return s.registry
}

// SetObject installs obj into the index, replacing any entity with the same
// id. It bumps the doctype's version counter, invalidates the parent's cached
// children and, when checkUnsaved is set and obj should persist, marks it
// dirty. Unregistered types fail with a RegistrationError.
func (s *Store) SetObject(obj entity.Object, checkUnsaved bool) error {
	reg, err := s.registry.Lookup(obj.Type())
	if err != nil {
		return err
	}

	base := obj.Base()
	id := base.ID()
	if prev, exists := s.objects[id]; exists {
		s.invalidateChildren(prev.Base().ParentID())
	} else {
		s.order = append(s.order, id)
	}

	base.Bind(obj, s, reg.Embedding, reg.PersistIfUnsaved)
	s.objects[id] = obj
	s.bump(obj.Type().Doctype)
	s.invalidateChildren(base.ParentID())

	if checkUnsaved && base.ShouldPersist() {
		s.MarkDirty(id)
	}
	return nil
}

// Get returns the installed entity with the given id.
func (s *Store) Get(id string) (entity.Object, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

// Len returns the number of installed entities.
func (s *Store) Len() int {
	return len(s.objects)
}

// Query scans the index in installation order and returns every entity that
// matches f. It never fails; unknown doctypes yield an empty result.
func (s *Store) Query(f entity.Filter, includeDeleted bool) []entity.Object {
	var out []entity.Object
	for _, id := range s.order {
		obj := s.objects[id]
		if obj.Base().Matches(f, includeDeleted) {
			out = append(out, obj)
		}
	}
	return out
}

// Children returns the entities embedded directly in id, in installation
// order. The result is cached until an entity under id is installed, removed
// or marked dirty.
func (s *Store) Children(id string) []entity.Object {
	ids, ok := s.children[id]
	if !ok {
		for _, childID := range s.order {
			if childID == id {
				continue
			}
			if s.objects[childID].Base().ParentID() == id {
				ids = append(ids, childID)
			}
		}
		s.children[id] = ids
	}

	out := make([]entity.Object, 0, len(ids))
	for _, childID := range ids {
		if obj, ok := s.objects[childID]; ok {
			out = append(out, obj)
		}
	}
	return out
}

// Version returns the counter for a doctype, or DefaultVersion for the
// counter that moves on every change.
func (s *Store) Version(doctype string) uint64 {
	return s.versions[doctype]
}

// MarkDirty adds id to the dirty set. Marking an entity flagged for deletion
// also marks everything that depends on it, since those entities become
// orphans.
func (s *Store) MarkDirty(id string) {
	s.dirty[id] = struct{}{}
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	base := obj.Base()
	if !base.IsRoot() {
		// the parent reference may have moved
		clear(s.children)
	}
	if base.DeleteFlagged() {
		s.markDependents(id)
	}
}

// MarkClean removes id from the dirty set.
func (s *Store) MarkClean(id string) {
	delete(s.dirty, id)
}

// IsDirty reports whether id is in the dirty set.
func (s *Store) IsDirty(id string) bool {
	_, ok := s.dirty[id]
	return ok
}

// DirtyIDs returns the dirty set sorted by id.
func (s *Store) DirtyIDs() []string {
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// markDependents marks every entity that relates to id, or is embedded under
// it, and everything depending on those in turn.
func (s *Store) markDependents(id string) {
	queue := []string{id}
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]
		for _, candidateID := range s.order {
			if seen[candidateID] {
				continue
			}
			candidate := s.objects[candidateID].Base()
			if candidate.ParentID() != target && !slices.Contains(candidate.Self().RelatedIDs(), target) {
				continue
			}
			seen[candidateID] = true
			s.dirty[candidateID] = struct{}{}
			queue = append(queue, candidateID)
		}
	}
}

// subtree returns the entity with the given id followed by everything
// embedded under it.
func (s *Store) subtree(id string) []entity.Object {
	root, ok := s.objects[id]
	if !ok {
		return nil
	}
	out := []entity.Object{root}
	seen := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, child := range s.Children(out[i].Base().ID()) {
			childID := child.Base().ID()
			if seen[childID] {
				continue
			}
			seen[childID] = true
			out = append(out, child)
		}
	}
	return out
}

// remove drops an entity from the index and the dirty set.
func (s *Store) remove(id string) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	s.invalidateChildren(obj.Base().ParentID())
	delete(s.children, id)
	delete(s.objects, id)
	delete(s.dirty, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.bump(obj.Type().Doctype)
}

func (s *Store) bump(doctype string) {
	s.versions[doctype]++
	if doctype != DefaultVersion {
		s.versions[DefaultVersion]++
	}
}

func (s *Store) invalidateChildren(parentID string) {
	delete(s.children, parentID)
}

// reset empties the index and the dirty set. Every doctype that had entities
// installed has its version counter bumped.
func (s *Store) reset() {
	doctypes := make(map[string]bool)
	for _, obj := range s.objects {
		doctypes[obj.Type().Doctype] = true
	}
	for doctype := range doctypes {
		s.bump(doctype)
	}
	clear(s.objects)
	clear(s.dirty)
	clear(s.children)
	s.order = nil
}
