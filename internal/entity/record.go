package entity

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	keyID        = "_id"
	keyRev       = "_rev"
	keyTimestamp = "lastPersistedTimestamp"
	keyDoctype   = "doctype"
	keySubtype   = "subtype"
	keyObjects   = "objects"
)

// Record is the durable shape of an entity: identity and type fields, the type
// fields inline, and the records of its embedded children.
type Record struct {
	ID                     string
	Rev                    string
	LastPersistedTimestamp *int64
	Doctype                string
	Subtype                string
	Fields                 map[string]any
	Objects                []Record
}

// Type returns the record's type tag.
func (r *Record) Type() Type {
	return Type{Doctype: r.Doctype, Subtype: r.Subtype}
}

// Timestamp returns the last-persisted timestamp, or 0 when never persisted.
func (r *Record) Timestamp() int64 {
	if r.LastPersistedTimestamp == nil {
		return 0
	}
	return *r.LastPersistedTimestamp
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+6)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[keyID] = r.ID
	if r.Rev != "" {
		out[keyRev] = r.Rev
	} else {
		delete(out, keyRev)
	}
	out[keyTimestamp] = r.LastPersistedTimestamp
	out[keyDoctype] = r.Doctype
	out[keySubtype] = r.Subtype
	if len(r.Objects) > 0 {
		out[keyObjects] = r.Objects
	} else {
		delete(out, keyObjects)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Storage metadata keys other than
// _id and _rev are dropped.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		var err error
		switch key {
		case keyID:
			err = json.Unmarshal(value, &r.ID)
		case keyRev:
			err = json.Unmarshal(value, &r.Rev)
		case keyTimestamp:
			err = json.Unmarshal(value, &r.LastPersistedTimestamp)
		case keyDoctype:
			err = json.Unmarshal(value, &r.Doctype)
		case keySubtype:
			err = json.Unmarshal(value, &r.Subtype)
		case keyObjects:
			err = json.Unmarshal(value, &r.Objects)
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			var v any
			err = json.Unmarshal(value, &v)
			r.Fields[key] = v
		}
		if err != nil {
			return fmt.Errorf("decode record key %q: %w", key, err)
		}
	}
	return nil
}
