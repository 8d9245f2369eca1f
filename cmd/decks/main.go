// Command decks manages offline deck stores and runs review sessions
// against them.
package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/scry-decks/internal/redact"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", redact.Error(err))
		os.Exit(1)
	}
}
