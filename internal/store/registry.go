package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Factory rebuilds an object from its durable record.
type Factory func(rec *entity.Record) (entity.Object, error)

// Registration binds a doctype/subtype pair to its behaviour.
type Registration struct {
	Type entity.Type

	// Embedding declares whether the type owns its record or is stored
	// inside the entity named by a property.
	Embedding entity.Embedding

	// PersistIfUnsaved persists entities of this type as soon as they are
	// installed without ever having been written.
	PersistIfUnsaved bool

	New Factory
}

// Registry maps doctype/subtype pairs to registrations. It is owned by a
// Store; there is no package-level registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a registration. Registering a pair twice fails with
// ErrDuplicate.
func (r *Registry) Register(reg Registration) error {
	key := reg.Type.Key()
	if reg.Type.Doctype == "" || reg.Type.Subtype == "" {
		return fmt.Errorf("%w: registration needs a doctype and subtype, got %q", ErrInvalidEntity, key)
	}
	if reg.New == nil {
		return fmt.Errorf("%w: registration for %q has no factory", ErrInvalidEntity, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: doctype %q", ErrDuplicate, key)
	}
	r.entries[key] = reg
	return nil
}

// Lookup returns the registration for t or a RegistrationError.
func (r *Registry) Lookup(t entity.Type) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[t.Key()]
	if !ok {
		return Registration{}, &RegistrationError{Type: t}
	}
	return reg, nil
}

// New rebuilds an object from rec using the registered factory.
func (r *Registry) New(rec *entity.Record) (entity.Object, error) {
	reg, err := r.Lookup(rec.Type())
	if err != nil {
		return nil, err
	}
	obj, err := reg.New(rec)
	if err != nil {
		return nil, fmt.Errorf("restore %s %q: %w", reg.Type.Key(), rec.ID, err)
	}
	if obj.Type() != reg.Type {
		return nil, fmt.Errorf("%w: factory for %q built %q", ErrInvalidEntity, reg.Type.Key(), obj.Type().Key())
	}
	return obj, nil
}

// Types lists every registered type sorted by key.
func (r *Registry) Types() []entity.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Type, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg.Type)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
