package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/normalization"
	"signal-backtest-lab/internal/storage/memory"
)

// stubSource returns fixed bars.
type stubSource struct {
	points []*domain.PricePoint
	err    error
}

func (s *stubSource) Fetch(_ context.Context, _ string, from, to int64) ([]*domain.PricePoint, error) {
	if s.err != nil {
		return nil, s.err
	}
	return filterRange(s.points, from, to), nil
}

func TestImporter_ImportSortsAndInserts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPriceSeriesStore()
	src := &stubSource{points: []*domain.PricePoint{
		{Symbol: "X", TimestampMs: 3000, Price: 3},
		{Symbol: "X", TimestampMs: 1000, Price: 1},
		{Symbol: "X", TimestampMs: 2000, Price: 2},
	}}

	im := NewImporter(ImporterOptions{Source: src, Store: store, BatchSize: 2})
	result, err := im.Import(ctx, "X", 0, 0)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if result.Inserted != 3 || result.Skipped != 0 {
		t.Errorf("Expected 3 inserted / 0 skipped, got %d / %d", result.Inserted, result.Skipped)
	}

	stored, _ := store.GetBySymbol(ctx, "X")
	if len(stored) != 3 || stored[0].TimestampMs != 1000 {
		t.Errorf("Unexpected stored series %+v", stored)
	}
}

func TestImporter_ReimportIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPriceSeriesStore()
	src := &stubSource{points: []*domain.PricePoint{
		{Symbol: "X", TimestampMs: 1000, Price: 1},
		{Symbol: "X", TimestampMs: 2000, Price: 2},
	}}
	im := NewImporter(ImporterOptions{Source: src, Store: store})

	if _, err := im.Import(ctx, "X", 0, 0); err != nil {
		t.Fatalf("First import failed: %v", err)
	}

	src.points = append(src.points, &domain.PricePoint{Symbol: "X", TimestampMs: 3000, Price: 3})
	result, err := im.Import(ctx, "X", 0, 0)
	if err != nil {
		t.Fatalf("Second import failed: %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 2 {
		t.Errorf("Expected 1 inserted / 2 skipped, got %d / %d", result.Inserted, result.Skipped)
	}
}

func TestImporter_RejectsInvalidSeries(t *testing.T) {
	src := &stubSource{points: []*domain.PricePoint{
		{Symbol: "X", TimestampMs: 1000, Price: 1},
		{Symbol: "X", TimestampMs: 1000, Price: 2},
	}}
	im := NewImporter(ImporterOptions{Source: src, Store: memory.NewPriceSeriesStore()})

	_, err := im.Import(context.Background(), "X", 0, 0)
	if !errors.Is(err, normalization.ErrDuplicateTimestamp) {
		t.Errorf("Expected ErrDuplicateTimestamp, got %v", err)
	}
}

func TestImporter_SourceError(t *testing.T) {
	boom := errors.New("boom")
	im := NewImporter(ImporterOptions{Source: &stubSource{err: boom}, Store: memory.NewPriceSeriesStore()})

	_, err := im.Import(context.Background(), "X", 0, 0)
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped source error, got %v", err)
	}
}

func TestCSVSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.csv")
	data := "Date,Close\n2024-01-02,100\n2024-01-03,101\n2024-01-04,102\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	src := NewCSVSource("X", path)
	all, err := src.Fetch(context.Background(), "X", 0, 0)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(all))
	}

	ranged, err := src.Fetch(context.Background(), "X", all[1].TimestampMs, all[1].TimestampMs)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Price != 101 {
		t.Errorf("Expected single bar at 101, got %+v", ranged)
	}

	if _, err := src.Fetch(context.Background(), "Y", 0, 0); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("Expected ErrUnknownSymbol, got %v", err)
	}
}
