package entity

import "github.com/google/go-cmp/cmp"

// Filter selects entities by property equality.
//
// Every Include pair must match. An entity matching every Exclude pair is
// rejected. A property the entity does not have never matches.
type Filter struct {
	Include map[string]any
	Exclude map[string]any
}

// ByDoctype returns a filter on the doctype alone.
func ByDoctype(doctype string) Filter {
	return Filter{Include: map[string]any{"doctype": doctype}}
}

// Matches reports whether the entity passes the filter. Entities that should
// be deleted are rejected unless includeDeleted is set.
func (e *Entity) Matches(f Filter, includeDeleted bool) bool {
	var props map[string]any
	lookup := func(key string) (any, bool) {
		switch key {
		case "id":
			return e.id, true
		case "parentId":
			return e.ParentID(), true
		}
		if e.self == nil {
			return nil, false
		}
		switch key {
		case "doctype":
			return e.self.Type().Doctype, true
		case "subtype":
			return e.self.Type().Subtype, true
		}
		if props == nil {
			props = e.self.Properties()
		}
		v, ok := props[key]
		return v, ok
	}
	matchesAll := func(pairs map[string]any) bool {
		for key, want := range pairs {
			got, ok := lookup(key)
			if !ok || !cmp.Equal(got, want) {
				return false
			}
		}
		return true
	}

	if !matchesAll(f.Include) {
		return false
	}
	if len(f.Exclude) > 0 && matchesAll(f.Exclude) {
		return false
	}
	return includeDeleted || !e.ShouldDelete()
}
