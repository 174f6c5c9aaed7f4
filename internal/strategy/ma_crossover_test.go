package strategy

import (
	"context"
	"errors"
	"math"
	"testing"

	"signal-backtest-lab/internal/domain"
)

// Helper to create a price series with 1-second bars.
func makePrices(values []float64) []*domain.PricePoint {
	out := make([]*domain.PricePoint, len(values))
	for i, v := range values {
		out[i] = &domain.PricePoint{Symbol: "TEST", TimestampMs: int64(i+1) * 1000, Price: v}
	}
	return out
}

func assertSignals(t *testing.T, out *Output, want []domain.Signal) {
	t.Helper()
	got := out.SignalValues()
	if len(got) != len(want) {
		t.Fatalf("expected %d signals, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("signal[%d]: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMACrossover_StateSignals(t *testing.T) {
	// short = SMA1 = price, long = SMA2: [NaN, 10, 11, 11.5, 10, 9.5]
	prices := makePrices([]float64{10, 10, 12, 11, 9, 10})

	out, err := NewMACrossoverStrategy(1, 2).GenerateSignals(context.Background(), prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	assertSignals(t, out, []domain.Signal{0, 0, 1, -1, -1, 1})

	long := out.Indicators["SMA_2"]
	if !math.IsNaN(long[0]) || long[3] != 11.5 {
		t.Errorf("unexpected SMA_2 series %v", long)
	}
	if _, ok := out.Indicators["SMA_1"]; !ok {
		t.Error("expected SMA_1 indicator in output")
	}
}

func TestMACrossoverEvent_CrossingsOnly(t *testing.T) {
	prices := makePrices([]float64{10, 10, 12, 11, 9, 10})

	out, err := NewMACrossoverEventStrategy(1, 2).GenerateSignals(context.Background(), prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	assertSignals(t, out, []domain.Signal{0, 0, 1, -1, 0, 1})
}

func TestMACrossover_TimestampsAligned(t *testing.T) {
	prices := makePrices([]float64{1, 2, 3, 4, 5})

	for _, g := range []Generator{NewMACrossoverStrategy(2, 3), NewMACrossoverEventStrategy(2, 3)} {
		out, err := g.GenerateSignals(context.Background(), prices)
		if err != nil {
			t.Fatalf("%s: GenerateSignals failed: %v", g.ID(), err)
		}
		for i, s := range out.Signals {
			if s.TimestampMs != prices[i].TimestampMs {
				t.Errorf("%s: signal %d timestamp %d != price timestamp %d", g.ID(), i, s.TimestampMs, prices[i].TimestampMs)
			}
		}
	}
}

func TestMACrossover_WarmupHolds(t *testing.T) {
	prices := makePrices([]float64{5, 4, 3})

	out, err := NewMACrossoverStrategy(2, 5).GenerateSignals(context.Background(), prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	assertSignals(t, out, []domain.Signal{0, 0, 0})
}

func TestMACrossover_EmptyAndInvalid(t *testing.T) {
	g := NewMACrossoverEventStrategy(2, 3)

	out, err := g.GenerateSignals(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateSignals failed on empty input: %v", err)
	}
	if len(out.Signals) != 0 {
		t.Errorf("expected no signals, got %d", len(out.Signals))
	}

	_, err = g.GenerateSignals(context.Background(), []*domain.PricePoint{nil})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMACrossover_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMACrossoverStrategy(1, 2).GenerateSignals(ctx, makePrices([]float64{1, 2}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRequiredIndicators(t *testing.T) {
	for _, g := range []Generator{NewMACrossoverStrategy(1, 2), NewMACrossoverEventStrategy(1, 2)} {
		got := g.RequiredIndicators()
		if len(got) != 1 || got[0] != "SMA" {
			t.Errorf("%s: expected [SMA], got %v", g.ID(), got)
		}
	}
}
