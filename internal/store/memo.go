package store

import (
	"slices"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// DefaultVersion names the counter that moves on every install or removal.
const DefaultVersion = "default"

// VersionSource exposes version counters.
type VersionSource interface {
	Version(doctype string) uint64
}

// Memo caches a derived result set until one of its watched version counters
// moves. Members that should be deleted are filtered out on every read, so
// deletions show up before any counter changes.
type Memo[T entity.Object] struct {
	watched  []string
	versions []uint64
	valid    bool
	cached   []T
}

// NewMemo creates a memo watching the given doctypes. With no doctypes it
// watches DefaultVersion.
func NewMemo[T entity.Object](doctypes ...string) *Memo[T] {
	if len(doctypes) == 0 {
		doctypes = []string{DefaultVersion}
	}
	return &Memo[T]{watched: doctypes}
}

// Get returns the cached result, recomputing it when a watched counter in src
// differs from the value recorded with the cache. A nil src disables caching.
func (m *Memo[T]) Get(src VersionSource, compute func() []T) []T {
	if src == nil {
		return live(compute())
	}
	current := make([]uint64, len(m.watched))
	for i, doctype := range m.watched {
		current[i] = src.Version(doctype)
	}
	if !m.valid || !slices.Equal(current, m.versions) {
		m.cached = compute()
		m.versions = current
		m.valid = true
	}
	return live(m.cached)
}

// Invalidate drops the cached result.
func (m *Memo[T]) Invalidate() {
	m.valid = false
	m.cached = nil
}

func live[T entity.Object](objs []T) []T {
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		if !obj.Base().ShouldDelete() {
			out = append(out, obj)
		}
	}
	return out
}
