package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// printer writes command results as text or JSON.
type printer struct {
	format string
	out    io.Writer
}

// print writes v. Text output is rendered by text; JSON output encodes v.
func (p printer) print(v any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.out)
	return nil
}

// writeCounts writes one "key: n" line per entry in key order.
func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}

// parseAssignments splits "Name=value" arguments.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field assignment %q: expected Name=value", arg)
		}
		out[name] = value
	}
	return out, nil
}

// writeFields writes one "name: value" line per field in name order.
func writeFields(w io.Writer, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, fields[name])
	}
}
