package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
)

// LoadResult summarises a LoadAll call.
type LoadResult struct {
	// Counts holds the number of entities installed per doctype.
	Counts map[string]int
	// Skipped counts design and metadata records whose id starts with "_".
	Skipped int
	// Repair describes the layout repair pass run after loading.
	Repair RepairResult
}

// RepairResult describes the repair pass of a load.
type RepairResult struct {
	Persisted int
	Deleted   int
}

// repairPlan collects records whose stored layout disagrees with the
// registered embedding rules.
type repairPlan struct {
	persist []string
	queued  map[string]bool
	stale   []*entity.Record
	// depths holds the embedding depth each installed entity was found at.
	depths map[string]int
}

func newRepairPlan() *repairPlan {
	return &repairPlan{queued: make(map[string]bool), depths: make(map[string]int)}
}

func (p *repairPlan) foundAt(id string, depth int) {
	if p == nil {
		return
	}
	p.depths[id] = depth
}

func (p *repairPlan) persistRootOf(id string) {
	if p == nil || p.queued[id] {
		return
	}
	p.queued[id] = true
	p.persist = append(p.persist, id)
}

func (p *repairPlan) removeRecord(rec *entity.Record) {
	if p == nil {
		return
	}
	p.stale = append(p.stale, &entity.Record{ID: rec.ID, Rev: rec.Rev, Doctype: rec.Doctype, Subtype: rec.Subtype})
}

// LoadAll replaces the index with every record from the backend and then
// repairs records whose layout no longer matches the registered embedding
// rules. Entities installed before the call, and pending dirty state, are
// discarded.
//
// When the same id appears in more than one record, the copy with the greater
// lastPersistedTimestamp wins. Records whose id starts with "_" are skipped.
// Attachments are never fetched.
func (s *Store) LoadAll(ctx context.Context) (*LoadResult, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	log := logger.FromContextOrDefault(ctx, s.logger)
	records, err := s.backend.BulkList(ctx)
	if err != nil {
		log.Error("failed to list records", slog.String("error", err.Error()))
		return nil, err
	}

	s.reset()
	result := &LoadResult{Counts: make(map[string]int)}
	plan := newRepairPlan()
	for _, rec := range records {
		if strings.HasPrefix(rec.ID, "_") {
			result.Skipped++
			continue
		}
		if err := s.instantiate(rec, rec.ID, 0, result.Counts, plan); err != nil {
			return nil, err
		}
	}

	ops := s.repairOperations(plan)
	for _, op := range ops {
		if op.Kind == OpPersist {
			result.Repair.Persisted++
		} else {
			result.Repair.Deleted++
		}
	}
	log.Info("loaded records",
		slog.Int("records", len(records)),
		slog.Int("skipped", result.Skipped),
		slog.Int("repair_persists", result.Repair.Persisted),
		slog.Int("repair_deletes", result.Repair.Deleted))

	if len(ops) == 0 {
		return result, nil
	}
	if err := s.applyOperations(ctx, ops, false, nil); err != nil {
		return result, err
	}
	return result, nil
}

// Restore installs a record and its embedded tree without marking anything
// dirty and without repairing layout.
func (s *Store) Restore(rec *entity.Record) (entity.Object, error) {
	if err := s.instantiate(rec, rec.ID, 0, nil, nil); err != nil {
		return nil, err
	}
	obj, ok := s.objects[rec.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	return obj, nil
}

// instantiate installs rec, found depth levels down inside the record with id
// container, and recurses into its embedded records.
func (s *Store) instantiate(rec *entity.Record, container string, depth int, counts map[string]int, plan *repairPlan) error {
	obj, err := s.registry.New(rec)
	if err != nil {
		return err
	}

	winner := obj
	existing, exists := s.objects[rec.ID]
	if exists {
		if ts, _ := existing.Base().LastPersisted(); ts >= rec.Timestamp() {
			winner = existing
		}
	}
	if winner == obj {
		if err := s.SetObject(obj, false); err != nil {
			return err
		}
		if !exists && counts != nil {
			counts[rec.Doctype]++
		}
		plan.foundAt(rec.ID, depth)
	}

	wantParent := winner.Base().ParentID()
	topLevel := container == rec.ID
	switch {
	case topLevel && wantParent != rec.ID:
		// a root record for an entity that is now embedded
		plan.removeRecord(rec)
		plan.persistRootOf(rec.ID)
	case !topLevel && wantParent != container:
		// moved to another parent, or now a root of its own
		plan.persistRootOf(container)
		plan.persistRootOf(rec.ID)
	}

	for i := range rec.Objects {
		if err := s.instantiate(&rec.Objects[i], rec.ID, depth+1, counts, plan); err != nil {
			return err
		}
	}
	return nil
}

// repairOperations resolves a repair plan into a batch in RepairOrder. A
// root's order is the embedding depth its winning copy was stored at, so
// entities stored deepest are rewritten first.
func (s *Store) repairOperations(plan *repairPlan) []Operation {
	var roots []entity.Object
	seen := make(map[string]bool)
	for _, id := range plan.persist {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		root, ok := obj.Base().Root()
		if !ok {
			s.logger.Warn("cannot repair entity without a root", slog.String("id", id))
			continue
		}
		rootID := root.Base().ID()
		if seen[rootID] {
			continue
		}
		seen[rootID] = true
		roots = append(roots, root)
	}

	var ops []Operation
	for _, root := range roots {
		id := root.Base().ID()
		ops = append(ops, Operation{Object: root, Kind: OpPersist, Order: plan.depths[id]})
	}
	for _, rec := range plan.stale {
		ops = append(ops, Operation{Kind: OpDelete, Stale: rec, Order: plan.depths[rec.ID]})
	}
	RepairOrder(ops)
	return ops
}

// FetchAttachment reads the binary payload of an installed entity. Payloads
// are never loaded by LoadAll.
func (s *Store) FetchAttachment(ctx context.Context, id string) ([]byte, error) {
	obj, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	att, ok := obj.(entity.Attachable)
	if !ok {
		return nil, fmt.Errorf("%w: %s carries no attachment", ErrAttachmentMissing, id)
	}
	return s.backend.GetAttachment(ctx, id, att.AttachmentName())
}
