package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect adapts queries and driver errors to one database.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string
	// Rebind rewrites '?' placeholders into the dialect's own style.
	Rebind(query string) string
	// MapError translates driver errors into store errors.
	MapError(err error) error
}

// QuestionRebind leaves '?' placeholders untouched.
func QuestionRebind(query string) string {
	return query
}

// DollarRebind rewrites '?' placeholders into $1, $2, ... in order.
func DollarRebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
