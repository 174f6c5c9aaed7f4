package metrics

import (
	"math"
	"testing"

	"signal-backtest-lab/internal/domain"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestTotalReturn(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"round trip", []float64{1000, 1000, 1009, 1018, 1018, 1018}, 1.8},
		{"loss", []float64{1000, 500}, -50},
		{"single point", []float64{1000}, 0},
		{"empty", nil, 0},
		{"zero start", []float64{0, 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalReturn(tt.equity); !almostEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCAGR(t *testing.T) {
	// One year of daily bars that doubles
	year := make([]float64, 252)
	for i := range year {
		year[i] = 100
	}
	year[len(year)-1] = 200

	tests := []struct {
		name   string
		equity []float64
		ppy    int
		want   float64
	}{
		{"doubling over one year", year, 252, 100},
		{"single point", []float64{100}, 252, 0},
		{"zero periods", []float64{100, 110}, 0, 0},
		{"zero start", []float64{0, 110}, 252, 0},
		{"flat", []float64{100, 100, 100}, 252, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CAGR(tt.equity, tt.ppy); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"peak to trough", []float64{1000, 1200, 900, 1100}, -25},
		{"monotonic rise", []float64{100, 110, 120}, 0},
		{"empty", nil, 0},
		{"two troughs", []float64{100, 90, 100, 50, 80}, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxDrawdown(tt.equity); !almostEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDrawdownSeries(t *testing.T) {
	got := DrawdownSeries([]float64{1000, 1200, 900, 1100})
	want := []float64{0, 0, -25, -100.0 / 12}

	if len(got) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("DrawdownSeries[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}

	if DrawdownSeries(nil) != nil {
		t.Error("Expected nil series for empty curve")
	}
}

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99, 0, 50})
	want := []float64{0.1, -0.1, -1, 0}

	if len(got) != len(want) {
		t.Fatalf("Expected %d returns, got %d", len(want), len(got))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("Returns[%d]: expected %v, got %v", i, want[i], got[i])
		}
	}

	if Returns([]float64{100}) != nil {
		t.Error("Expected nil returns for single point")
	}
}

func TestVolatility(t *testing.T) {
	// mean 0, sample stdev sqrt(0.02)
	want := math.Sqrt(0.02) * math.Sqrt(252) * 100
	if got := Volatility([]float64{0.1, -0.1}, 252); !almostEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := Volatility([]float64{0.1}, 252); got != 0 {
		t.Errorf("Expected 0 for a single observation, got %v", got)
	}
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.03, -0.01, 0.02}
	mean := 0.0125
	sd := computeStddev(returns, mean)
	want := (mean - 0.02/252) / sd * math.Sqrt(252)

	if got := SharpeRatio(returns, 0.02, 252); !almostEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSharpeRatio_Degenerate(t *testing.T) {
	flat := Returns([]float64{1000, 1000, 1000, 1000})
	if got := SharpeRatio(flat, 0.02, 252); got != 0 {
		t.Errorf("Expected 0 for constant equity, got %v", got)
	}
	if got := SharpeRatio(nil, 0.02, 252); got != 0 {
		t.Errorf("Expected 0 for no returns, got %v", got)
	}
	if got := SharpeRatio([]float64{0.05}, 0.02, 252); got != 0 {
		t.Errorf("Expected 0 for one return, got %v", got)
	}
}

func TestWinRate(t *testing.T) {
	buy := func(p float64) domain.Trade { return domain.Trade{Side: domain.SideBuy, Price: p, Quantity: 1} }
	sell := func(p float64) domain.Trade { return domain.Trade{Side: domain.SideSell, Price: p, Quantity: 1} }

	tests := []struct {
		name      string
		trades    []domain.Trade
		want      float64
		wantPairs int
	}{
		{"no trades", nil, 0, 0},
		{"open position only", []domain.Trade{buy(100)}, 0, 0},
		{"one win", []domain.Trade{buy(101), sell(103)}, 100, 1},
		{"break-even is not a win", []domain.Trade{buy(100), sell(100)}, 0, 1},
		{"win, loss, open", []domain.Trade{buy(10), sell(12), buy(12), sell(11), buy(11)}, 50, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WinRate(tt.trades); !almostEqual(got, tt.want) {
				t.Errorf("Expected win rate %v, got %v", tt.want, got)
			}
			if got := RoundTrips(tt.trades); got != tt.wantPairs {
				t.Errorf("Expected %d round trips, got %d", tt.wantPairs, got)
			}
		})
	}
}

func TestCompute_RoundTrip(t *testing.T) {
	equity := []float64{1000, 1000, 1009, 1018, 1018, 1018}
	curve := make([]domain.EquityPoint, len(equity))
	for i, e := range equity {
		curve[i] = domain.EquityPoint{TimestampMs: int64(i + 1), Equity: e}
	}
	trades := []domain.Trade{
		{TimestampMs: 2, Side: domain.SideBuy, Price: 101, Quantity: 9},
		{TimestampMs: 4, Side: domain.SideSell, Price: 103, Quantity: 9},
	}

	snap := Compute(curve, trades, DefaultOptions())

	if !almostEqual(snap.TotalReturnPct, 1.8) {
		t.Errorf("Expected total return 1.8, got %v", snap.TotalReturnPct)
	}
	if snap.MaxDrawdownPct != 0 {
		t.Errorf("Expected max drawdown 0, got %v", snap.MaxDrawdownPct)
	}
	if snap.WinRatePct != 100 || snap.TradeCount != 2 || snap.RoundTrips != 1 {
		t.Errorf("Unexpected trade stats: win %v, trades %d, pairs %d", snap.WinRatePct, snap.TradeCount, snap.RoundTrips)
	}
	if snap.FinalValue != 1018 {
		t.Errorf("Expected final value 1018, got %v", snap.FinalValue)
	}
	if snap.VolatilityPct <= 0 || snap.SharpeRatio <= 0 {
		t.Errorf("Expected positive volatility and Sharpe, got %v / %v", snap.VolatilityPct, snap.SharpeRatio)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	curve := []domain.EquityPoint{{Equity: 100}, {Equity: 120}, {Equity: 90}, {Equity: 130}}
	trades := []domain.Trade{{Side: domain.SideBuy, Price: 10}, {Side: domain.SideSell, Price: 9}}

	first := Compute(curve, trades, DefaultOptions())
	second := Compute(curve, trades, DefaultOptions())
	if first != second {
		t.Errorf("Expected identical snapshots, got %+v and %+v", first, second)
	}
}

func TestCompute_NeverNaN(t *testing.T) {
	inputs := [][]float64{
		nil,
		{0},
		{0, 0, 0},
		{100, 0, 100},
		{-5, 10},
		{1e308, 1e308 * 1.5},
	}
	for _, equity := range inputs {
		curve := make([]domain.EquityPoint, len(equity))
		for i, e := range equity {
			curve[i] = domain.EquityPoint{Equity: e}
		}
		snap := Compute(curve, nil, DefaultOptions())
		for k, v := range snap.Map() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("equity %v: %s is %v", equity, k, v)
			}
		}
	}
}
