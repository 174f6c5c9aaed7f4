package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-backtest-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-a", "AAPL", "MA_CROSSOVER_50_200")
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-a", "AAPL", "MA_CROSSOVER_50_200")
	require.NoError(t, store.Insert(ctx, run))

	err := store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetBySymbolAndStrategy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleRun("run-c", "AAPL", "MA_CROSSOVER_5_20")))
	require.NoError(t, store.Insert(ctx, sampleRun("run-a", "AAPL", "MA_CROSSOVER_50_200")))
	require.NoError(t, store.Insert(ctx, sampleRun("run-b", "MSFT", "MA_CROSSOVER_5_20")))

	bySymbol, err := store.GetBySymbol(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, bySymbol, 2)
	assert.Equal(t, "run-a", bySymbol[0].RunID)
	assert.Equal(t, "run-c", bySymbol[1].RunID)

	byStrategy, err := store.GetByStrategy(ctx, "MA_CROSSOVER_5_20")
	require.NoError(t, err)
	require.Len(t, byStrategy, 2)
	assert.Equal(t, "run-b", byStrategy[0].RunID)
	assert.Equal(t, "run-c", byStrategy[1].RunID)

	none, err := store.GetBySymbol(ctx, "TSLA")
	require.NoError(t, err)
	assert.Empty(t, none)
}
