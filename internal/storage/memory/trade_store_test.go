package memory

import (
	"context"
	"errors"
	"testing"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []domain.Trade{
		{TimestampMs: 1000, Side: domain.SideBuy, Price: 101, Quantity: 9},
		{TimestampMs: 3000, Side: domain.SideSell, Price: 103, Quantity: 9},
	}
	if err := store.InsertBulk(ctx, "run-1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Caller mutation must not leak into the store
	trades[0].Price = 0

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(got))
	}
	if got[0].Side != domain.SideBuy || got[0].Price != 101 {
		t.Errorf("Unexpected first trade %+v", got[0])
	}
}

func TestTradeStore_DuplicateRun(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []domain.Trade{{TimestampMs: 1000, Side: domain.SideBuy, Price: 1, Quantity: 1}}
	if err := store.InsertBulk(ctx, "run-1", trades); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	if err := store.InsertBulk(ctx, "run-1", trades); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_InvalidRunID(t *testing.T) {
	store := NewTradeStore()

	err := store.InsertBulk(context.Background(), "", []domain.Trade{{Side: domain.SideBuy}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_UnknownRunIsEmpty(t *testing.T) {
	store := NewTradeStore()

	got, err := store.GetByRunID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no trades, got %d", len(got))
	}
}
