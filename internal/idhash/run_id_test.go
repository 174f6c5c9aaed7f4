package idhash

import (
	"testing"

	"signal-backtest-lab/internal/domain"
)

func TestComputeRunID(t *testing.T) {
	key := RunKey{
		Symbol:       "AAPL",
		StrategyID:   "MA_CROSSOVER_50_200",
		InitialCash:  10000,
		FeePerTrade:  0,
		FromMs:       1514764800000,
		ToMs:         1735603200000,
		BarCount:     1760,
		SeriesDigest: "abc",
	}

	got := ComputeRunID(key)
	if len(got) != 64 {
		t.Errorf("ComputeRunID() length = %d, want 64", len(got))
	}

	// Deterministic
	if again := ComputeRunID(key); again != got {
		t.Errorf("ComputeRunID() not deterministic: %s != %s", got, again)
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := RunKey{Symbol: "AAPL", StrategyID: "MA_CROSSOVER_50_200", InitialCash: 10000, BarCount: 10}

	variants := []RunKey{base, base, base, base, base, base, base}
	variants[0].Symbol = "MSFT"
	variants[1].StrategyID = "MA_CROSSOVER_EVENT_50_200"
	variants[2].InitialCash = 10001
	variants[3].FeePerTrade = 1
	variants[4].SeriesDigest = "other"
	variants[5].PeriodsPerYear = 52
	variants[6].RiskFreeRate = 0.1

	baseID := ComputeRunID(base)
	seen := map[string]bool{baseID: true}
	for i, v := range variants {
		id := ComputeRunID(v)
		if seen[id] {
			t.Errorf("variant %d produced a colliding run ID", i)
		}
		seen[id] = true
	}
}

func TestComputeSeriesDigest(t *testing.T) {
	a := []*domain.PricePoint{
		{Symbol: "AAPL", TimestampMs: 1000, Price: 100},
		{Symbol: "AAPL", TimestampMs: 2000, Price: 101.5},
	}
	b := []*domain.PricePoint{
		{Symbol: "AAPL", TimestampMs: 1000, Price: 100},
		{Symbol: "AAPL", TimestampMs: 2000, Price: 101.25},
	}

	da, db := ComputeSeriesDigest(a), ComputeSeriesDigest(b)
	if len(da) != 64 {
		t.Errorf("digest length = %d, want 64", len(da))
	}
	if da == db {
		t.Error("expected different digests for different prices")
	}
	if da != ComputeSeriesDigest(a) {
		t.Error("expected deterministic digest")
	}
}
