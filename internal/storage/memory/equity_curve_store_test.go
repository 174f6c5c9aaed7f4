package memory

import (
	"context"
	"errors"
	"testing"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

func TestEquityCurveStore_InsertBulkAndGet(t *testing.T) {
	store := NewEquityCurveStore()
	ctx := context.Background()

	points := []domain.EquityPoint{
		{TimestampMs: 2000, Equity: 1009, Cash: 91, Shares: 9},
		{TimestampMs: 1000, Equity: 1000, Cash: 1000},
	}
	if err := store.InsertBulk(ctx, "run-1", points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(got))
	}
	if got[0].TimestampMs != 1000 || got[1].Shares != 9 {
		t.Error("Curve not ordered by timestamp ASC")
	}
}

func TestEquityCurveStore_Duplicates(t *testing.T) {
	store := NewEquityCurveStore()
	ctx := context.Background()

	dup := []domain.EquityPoint{{TimestampMs: 1000}, {TimestampMs: 1000}}
	if err := store.InsertBulk(ctx, "run-1", dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	ok := []domain.EquityPoint{{TimestampMs: 1000, Equity: 1}}
	if err := store.InsertBulk(ctx, "run-1", ok); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "run-1", ok); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for existing curve, got %v", err)
	}
}
