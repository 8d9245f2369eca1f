package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/store"
)

func TestStoreError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *store.StoreError
		expected string
	}{
		{
			name:     "with wrapped error",
			err:      store.NewStoreError("deck-1", "put", "stale revision", store.ErrConflict),
			expected: "put operation on deck-1 failed: stale revision: revision conflict",
		},
		{
			name:     "without wrapped error",
			err:      store.NewStoreError("deck-1", "remove", "refused", nil),
			expected: "remove operation on deck-1 failed: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	wrapped := fmt.Errorf("commit: %w", store.NewStoreError("deck-1", "put", "stale", store.ErrConflict))
	assert.True(t, store.IsConflictError(wrapped))
	assert.False(t, store.IsNotFoundError(wrapped))

	var storeErr *store.StoreError
	assert.True(t, errors.As(wrapped, &storeErr))
	assert.Equal(t, "put", storeErr.Operation)
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, store.IsNotFoundError(fmt.Errorf("get: %w", store.ErrNotFound)))
	assert.False(t, store.IsNotFoundError(errors.New("entity not found")))
	assert.False(t, store.IsRegistrationError(store.ErrNotFound))

	regErr := &store.RegistrationError{Type: entity.Type{Doctype: "card", Subtype: "base"}}
	assert.True(t, store.IsRegistrationError(fmt.Errorf("load: %w", regErr)))
	assert.Equal(t, `doctype "card/base" is not registered`, regErr.Error())
}

func TestRevisions(t *testing.T) {
	t.Parallel()

	first := store.NextRev("")
	assert.Equal(t, 1, store.RevGeneration(first))
	assert.Regexp(t, `^1-[0-9a-f]{32}$`, first)
	assert.Equal(t, 5, store.RevGeneration(store.NextRev("4-abc")))
	assert.NotEqual(t, store.NextRev(first), store.NextRev(first))

	for _, rev := range []string{"", "abc", "-1-x", "x-1"} {
		assert.Zero(t, store.RevGeneration(rev), rev)
	}
}
