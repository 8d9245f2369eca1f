package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  string
		dollar string
	}{
		{"no placeholders", "SELECT 1", "SELECT 1"},
		{"one", "SELECT rev FROM documents WHERE id = ?", "SELECT rev FROM documents WHERE id = $1"},
		{"several", "UPDATE documents SET rev = ?, body = ? WHERE id = ?", "UPDATE documents SET rev = $1, body = $2 WHERE id = $3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.query, QuestionRebind(tc.query))
			assert.Equal(t, tc.dollar, DollarRebind(tc.query))
		})
	}
}
