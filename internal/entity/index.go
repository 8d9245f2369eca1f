package entity

// Object is implemented by every document kind.
type Object interface {
	// Base returns the embedded lifecycle state.
	Base() *Entity

	// Type returns the doctype/subtype tag.
	Type() Type

	// RelatedIDs lists the ids this object depends on. A missing or deleted
	// target orphans the object.
	RelatedIDs() []string

	// Properties returns the type fields that are persisted and compared for
	// change detection. Identity fields are not included.
	Properties() map[string]any
}

// Attachable is implemented by objects that carry a binary payload stored
// beside their document.
type Attachable interface {
	Object

	// AttachmentName is the name the payload is stored under.
	AttachmentName() string

	// PendingAttachment returns a payload that still has to be written.
	PendingAttachment() (*Attachment, bool)

	// AttachmentStored is called once the pending payload has been written.
	AttachmentStored()
}

// Attachment is a named binary payload.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Index is the in-memory view an entity is installed into.
type Index interface {
	Get(id string) (Object, bool)
	Query(filter Filter, includeDeleted bool) []Object
	Children(id string) []Object
	SetObject(obj Object, checkUnsaved bool) error
	MarkDirty(id string)
	MarkClean(id string)
	Version(doctype string) uint64
}
