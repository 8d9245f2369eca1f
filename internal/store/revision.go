package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NextRev returns the revision token that follows prev. Tokens have the form
// "<generation>-<random hex>" and start at generation 1.
func NextRev(prev string) string {
	return fmt.Sprintf("%d-%s", RevGeneration(prev)+1, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// RevGeneration returns the numeric generation of a revision token, or 0 for
// an empty or malformed token.
func RevGeneration(rev string) int {
	head, _, found := strings.Cut(rev, "-")
	if !found {
		return 0
	}
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
