package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/storagetest"
	"github.com/scrypster/recall/pkg/types"
)

func TestStoreSuite(t *testing.T) {
	storagetest.RunStoreSuite(t, func(t *testing.T) storage.Store {
		return New()
	})
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	m := &types.Memory{OwnerID: "u", Content: "original", Category: types.CategoryFact, Tags: []string{"a"}}
	require.NoError(t, s.SaveMemory(ctx, m))

	m.Content = "changed by caller"
	m.Tags[0] = "z"

	got, err := s.GetMemory(ctx, "u", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
	assert.Equal(t, []string{"a"}, got.Tags)

	got.Content = "changed again"
	again, err := s.GetMemory(ctx, "u", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Content)
}

func TestSaveMemoriesRejectsForeignIDWithoutPartialWrite(t *testing.T) {
	ctx := context.Background()
	s := New()

	theirs := &types.Memory{OwnerID: "other", Content: "theirs", Category: types.CategoryFact}
	require.NoError(t, s.SaveMemory(ctx, theirs))

	batch := []*types.Memory{
		{OwnerID: "u", Content: "first", Category: types.CategoryFact},
		{ID: theirs.ID, OwnerID: "u", Content: "hijack", Category: types.CategoryFact},
	}
	_, err := s.SaveMemories(ctx, batch)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	mine, err := s.ListMemories(ctx, "u", storage.MemoryListOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Empty(t, mine)

	got, err := s.GetMemory(ctx, "other", theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "theirs", got.Content)
}
