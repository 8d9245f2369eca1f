package entity

import (
	"encoding/json"
	"strings"
)

// Normalize converts properties to their JSON value form so snapshots and
// current state compare independently of Go types. Null properties are
// dropped, so an absent field and a null one compare equal. Values that cannot
// be encoded are kept as they are.
func Normalize(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	if len(props) == 0 {
		return out
	}
	data, err := json.Marshal(props)
	if err == nil {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		out = make(map[string]any, len(props))
		for k, v := range props {
			out[k] = v
		}
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out
}

// Decode fills v from record fields using its json tags.
func Decode(fields map[string]any, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// CombineIDs derives a deterministic id from its parts.
func CombineIDs(ids ...string) string {
	return strings.Join(ids, "")
}

// Collect keeps the objects of concrete type T.
func Collect[T Object](objs []Object) []T {
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		if t, ok := obj.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// QueryAs runs a query against idx and keeps the results of type T.
func QueryAs[T Object](idx Index, f Filter) []T {
	if idx == nil {
		return nil
	}
	return Collect[T](idx.Query(f, false))
}
