package store

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sort"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/graph"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
)

// OpKind selects what a commit operation does with its root.
type OpKind int

const (
	// OpPersist writes the root's record.
	OpPersist OpKind = iota
	// OpDelete removes the root's record and its subtree.
	OpDelete
)

// String implements fmt.Stringer.
func (k OpKind) String() string {
	if k == OpDelete {
		return "delete"
	}
	return "persist"
}

// Operation is one step of a commit batch.
type Operation struct {
	// Object is the root being written or removed. Nil for stale removals.
	Object entity.Object
	Kind   OpKind
	// Order is the root's dependency level within the batch.
	Order int
	// Stale names a durable record that no longer matches the embedding
	// rules. Only the record is removed; the index is left alone.
	Stale *entity.Record
}

// ID returns the id of the record the operation touches.
func (op Operation) ID() string {
	if op.Stale != nil {
		return op.Stale.ID
	}
	return op.Object.Base().ID()
}

// Doctype returns the doctype of the record the operation touches.
func (op Operation) Doctype() string {
	if op.Stale != nil {
		return op.Stale.Doctype
	}
	return op.Object.Type().Doctype
}

// CommitOrder sorts a commit batch ascending by dependency level, breaking
// ties by doctype name, so dependencies are written before their dependents.
func CommitOrder(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Order != ops[j].Order {
			return ops[i].Order < ops[j].Order
		}
		return ops[i].Doctype() < ops[j].Doctype()
	})
}

// RepairOrder sorts a load-repair batch: persists first, descending by
// dependency level, then removals of stale records in their original order.
func RepairOrder(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		iPersist, jPersist := ops[i].Kind == OpPersist, ops[j].Kind == OpPersist
		if iPersist != jPersist {
			return iPersist
		}
		if iPersist {
			return ops[i].Order > ops[j].Order
		}
		return false
	})
}

// GenerateUpdates resolves the dirty set into one operation per distinct root.
//
// Dirty ids whose entity is gone, no longer needs persisting or deleting, or
// has no resolvable root are dropped from the dirty set. The remaining roots
// are ranked through a dependency graph; each root is deleted if it should be
// and persisted otherwise.
func (s *Store) GenerateUpdates() []Operation {
	var roots []entity.Object
	seen := make(map[string]bool)

	for _, id := range s.DirtyIDs() {
		obj, ok := s.objects[id]
		if !ok {
			delete(s.dirty, id)
			continue
		}
		base := obj.Base()
		if !base.ShouldPersist() && !base.ShouldDelete() {
			delete(s.dirty, id)
			continue
		}
		root, ok := base.Root()
		if !ok {
			s.logger.Warn("dropping dirty entity without a root",
				slog.String("id", id),
				slog.String("parent_id", base.ParentID()))
			delete(s.dirty, id)
			continue
		}
		rootID := root.Base().ID()
		if !seen[rootID] {
			seen[rootID] = true
			roots = append(roots, root)
		}
	}
	return s.operationsFor(roots)
}

func (s *Store) operationsFor(roots []entity.Object) []Operation {
	if len(roots) == 0 {
		return nil
	}
	levels := graph.Build(s, roots).Levels(graph.Forward)
	ops := make([]Operation, 0, len(roots))
	for _, root := range roots {
		kind := OpPersist
		if root.Base().ShouldDelete() {
			kind = OpDelete
		}
		ops = append(ops, Operation{
			Object: root,
			Kind:   kind,
			Order:  levels[root.Base().ID()],
		})
	}
	return ops
}

// ApplyOperations executes a batch against the backend. With sorted set the
// batch is first put in CommitOrder; otherwise it runs as given.
//
// Persisting a root strips every embedded descendant that should be deleted
// before the record is written. Deleting a root removes its record, unless it
// was never persisted, and drops its subtree from the index. Dirty state is
// cleared per root only after that root succeeded, so a failure leaves the
// remaining roots dirty for the next attempt.
func (s *Store) ApplyOperations(ctx context.Context, ops []Operation, sorted bool, progress Progress) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.applyOperations(ctx, ops, sorted, progress)
}

func (s *Store) applyOperations(ctx context.Context, ops []Operation, sorted bool, progress Progress) error {
	if sorted {
		CommitOrder(ops)
	}
	log := logger.FromContextOrDefault(ctx, s.logger)
	total := len(ops)

	for i, op := range ops {
		var err error
		switch {
		case op.Stale != nil:
			err = s.removeStale(ctx, op.Stale)
		case op.Kind == OpDelete:
			err = s.deleteRoot(ctx, op.Object)
		default:
			err = s.persistRoot(ctx, op.Object)
		}
		if err != nil {
			log.Error("commit operation failed",
				slog.String("id", op.ID()),
				slog.String("doctype", op.Doctype()),
				slog.String("operation", op.Kind.String()),
				slog.Int("completed", i),
				slog.Int("total", total),
				slog.String("error", err.Error()))
			return err
		}
		if progress != nil {
			progress.OnProgress(ctx, i+1, total)
		}
		runtime.Gosched()
	}
	log.Debug("commit batch applied", slog.Int("operations", total))
	return nil
}

// Persist commits every dirty entity.
func (s *Store) Persist(ctx context.Context) error {
	return s.PersistWithProgress(ctx, nil)
}

// PersistWithProgress commits every dirty entity, reporting each completed
// root to progress.
func (s *Store) PersistWithProgress(ctx context.Context, progress Progress) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	ops := s.GenerateUpdates()
	if len(ops) == 0 {
		return nil
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("committing batch",
		slog.Int("roots", len(ops)))
	return s.applyOperations(ctx, ops, true, progress)
}

func (s *Store) persistRoot(ctx context.Context, root entity.Object) error {
	base := root.Base()
	doomed := s.doomedDescendants(base.ID())

	timestamp := s.now().UnixMilli()
	rec := base.Serialize(true, &timestamp)
	pruneRecords(&rec, doomed)
	rev, err := s.backend.Put(ctx, &rec)
	if err != nil {
		return err
	}
	s.stripDeleted(doomed)

	if att, ok := root.(entity.Attachable); ok {
		if pending, ok := att.PendingAttachment(); ok {
			attRev, err := s.backend.PutAttachment(ctx, base.ID(), rev, *pending)
			if err != nil {
				// the document is written; keep the payload pending
				base.UpdateAfterPersist(rev, timestamp)
				base.FlagPersist()
				return err
			}
			att.AttachmentStored()
			rev = attRev
		}
	}

	base.UpdateAfterPersist(rev, timestamp)
	for _, obj := range s.subtree(base.ID()) {
		delete(s.dirty, obj.Base().ID())
	}
	return nil
}

// doomedDescendants returns every descendant of rootID that should be
// deleted, together with its own subtree. The index is left untouched.
func (s *Store) doomedDescendants(rootID string) []string {
	var doomed []string
	queue := []string{rootID}
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]
		for _, child := range s.Children(parentID) {
			childID := child.Base().ID()
			if !child.Base().ShouldDelete() {
				queue = append(queue, childID)
				continue
			}
			for _, obj := range s.subtree(childID) {
				doomed = append(doomed, obj.Base().ID())
			}
		}
	}
	return doomed
}

// pruneRecords drops the embedded records named in ids from rec's tree.
func pruneRecords(rec *entity.Record, ids []string) {
	if len(ids) == 0 || len(rec.Objects) == 0 {
		return
	}
	kept := rec.Objects[:0]
	for _, child := range rec.Objects {
		if slices.Contains(ids, child.ID) {
			continue
		}
		pruneRecords(&child, ids)
		kept = append(kept, child)
	}
	rec.Objects = kept
}

// stripDeleted flags the given entities deleted and drops them from the index
// and the dirty set. It runs once their root's record no longer holds them.
func (s *Store) stripDeleted(ids []string) {
	for _, id := range ids {
		if obj, ok := s.objects[id]; ok {
			obj.Base().Delete()
		}
	}
	for _, id := range ids {
		s.remove(id)
	}
}

func (s *Store) deleteRoot(ctx context.Context, root entity.Object) error {
	base := root.Base()
	if _, persisted := base.LastPersisted(); persisted && base.Rev() != "" {
		if err := s.backend.Remove(ctx, base.ID(), base.Rev()); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	for _, obj := range s.subtree(base.ID()) {
		s.remove(obj.Base().ID())
	}
	return nil
}

func (s *Store) removeStale(ctx context.Context, rec *entity.Record) error {
	if err := s.backend.Remove(ctx, rec.ID, rec.Rev); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
