package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/outbox/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/outbox/internal/core/domain"
)

func TestActivityService_Get(t *testing.T) {
	svc := NewActivityService(seededStore(t, "hello"))
	ctx := context.Background()

	act, err := svc.Get(ctx, "n00")
	require.NoError(t, err)
	assert.Equal(t, "hello", act.Derived.ObjectContent)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestActivityService_Delete(t *testing.T) {
	store := seededStore(t, "hello", "world")
	svc := NewActivityService(store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "n00"))

	_, err := svc.Get(ctx, "n00")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, ok := store.IndexEntry("n00")
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Delete(ctx, "n00"), domain.ErrNotFound)
}

func TestActivityService_CountAndStats(t *testing.T) {
	svc := NewActivityService(seededStore(t, "a", "b", "c"))
	ctx := context.Background()

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStats{Activities: 3, IndexEntries: 3}, stats)
	assert.True(t, stats.Consistent())
}

func TestActivityService_Stats_Empty(t *testing.T) {
	stats, err := NewActivityService(memory.NewActivityStore()).Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Activities)
	assert.True(t, stats.Consistent())
}
