package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistoryStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()

	require.NoError(t, store.Append(ctx, sampleResult(1)))
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = store.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestMemoryHistoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	require.NoError(t, store.Append(ctx, sampleResult(1)))
	assert.ErrorIs(t, store.Append(ctx, sampleResult(1)), ErrDuplicateResult)
}

func TestMemoryHistoryStore_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.Append(ctx, sampleResult(i)))
	}

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})

	all, _ := store.Recent(ctx, 50)
	assert.Len(t, all, 5)

	none, _ := store.Recent(ctx, 0)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	negative, _ := store.Recent(ctx, -1)
	assert.Empty(t, negative)
}

func TestMemoryHistoryStore_RecentOrdersByCreationNotAppend(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	newer := sampleResult(2)
	newer.CreatedAt = t0.Add(time.Second)
	older := sampleResult(1)
	older.CreatedAt = t0
	sameTime := sampleResult(3)
	sameTime.CreatedAt = t0

	// 较新的结果先追加
	require.NoError(t, store.Append(ctx, newer))
	require.NoError(t, store.Append(ctx, older))
	require.NoError(t, store.Append(ctx, sameTime))

	recent, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{2, 3, 1}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, t0, got.CreatedAt)
}

func TestMemoryHistoryStore_LastID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	last, err := store.LastID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	require.NoError(t, store.Append(ctx, sampleResult(4)))
	require.NoError(t, store.Append(ctx, sampleResult(9)))
	last, _ = store.LastID(ctx)
	assert.Equal(t, int64(9), last)
}
