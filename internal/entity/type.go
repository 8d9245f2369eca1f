package entity

// Type is the two-part tag that selects an entity's registered behaviour and
// persistence schema.
type Type struct {
	Doctype string
	Subtype string
}

// Key returns the registry key for the type.
func (t Type) Key() string {
	return t.Doctype + "/" + t.Subtype
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return t.Key()
}

// Embedding declares where entities of a type are stored. The zero value is a
// root embedding.
type Embedding struct {
	// Field names the property that holds the parent id. Empty for roots.
	Field string
}

// Root returns the embedding of a type that owns its own durable record.
func Root() Embedding {
	return Embedding{}
}

// EmbeddedIn returns the embedding of a type serialized inside the entity whose
// id is held in field.
func EmbeddedIn(field string) Embedding {
	return Embedding{Field: field}
}

// IsRoot reports whether the embedding declares a root type.
func (e Embedding) IsRoot() bool {
	return e.Field == ""
}
