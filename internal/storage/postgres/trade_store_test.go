package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

func TestTradeStore_InsertBulk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, sampleRun("run-a", "AAPL", "MA_CROSSOVER_5_20")))

	store := NewTradeStore(pool)
	require.NoError(t, store.InsertBulk(ctx, "run-a", nil))

	trades := []domain.Trade{
		{TimestampMs: 3000, Side: domain.SideBuy, Price: 12, Quantity: 83, Fee: 0},
		{TimestampMs: 5000, Side: domain.SideSell, Price: 9, Quantity: 83, Fee: 0},
		{TimestampMs: 6000, Side: domain.SideBuy, Price: 10, Quantity: 75, Fee: 0},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-a", trades))

	got, err := store.GetByRunID(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, trades, got)
}

func TestTradeStore_InsertBulk_DuplicateRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, NewRunStore(pool).Insert(ctx, sampleRun("run-a", "AAPL", "MA_CROSSOVER_5_20")))

	store := NewTradeStore(pool)
	trades := []domain.Trade{{TimestampMs: 1000, Side: domain.SideBuy, Price: 10, Quantity: 5, Fee: 1}}
	require.NoError(t, store.InsertBulk(ctx, "run-a", trades))

	err := store.InsertBulk(ctx, "run-a", trades)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run-a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTradeStore_GetByRunID_Empty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewTradeStore(pool).GetByRunID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeStore_InsertBulk_UnknownRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeStore(pool)
	trades := []domain.Trade{{TimestampMs: 1000, Side: domain.SideBuy, Price: 10, Quantity: 5, Fee: 1}}

	err := store.InsertBulk(ctx, "run-missing", trades)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := store.GetByRunID(ctx, "run-missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
