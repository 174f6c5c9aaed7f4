// Package verification checks that backtests are reproducible: a stored run
// replayed from its price series, or a run executed twice, must yield the same
// trades, equity curve and metrics.
package verification

import (
	"context"
	"fmt"
	"math"

	"signal-backtest-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between expected and actual values.
type FieldDivergence struct {
	Field    string // e.g. "trades[2].Price"
	Expected any
	Actual   any
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Verifier replays stored runs.
type Verifier interface {
	// VerifyRun replays one stored run and compares every output.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifySymbol verifies all stored runs of a symbol.
	VerifySymbol(ctx context.Context, symbol string) (*VerificationReport, error)
}

// CompareTrades compares two trade logs position by position.
func CompareTrades(expected, actual []domain.Trade) []FieldDivergence {
	var d []FieldDivergence
	if len(expected) != len(actual) {
		d = append(d, FieldDivergence{Field: "trades.len", Expected: len(expected), Actual: len(actual)})
	}

	for i := 0; i < min(len(expected), len(actual)); i++ {
		e, a := expected[i], actual[i]
		prefix := fmt.Sprintf("trades[%d].", i)
		if e.TimestampMs != a.TimestampMs {
			d = append(d, FieldDivergence{prefix + "TimestampMs", e.TimestampMs, a.TimestampMs})
		}
		if e.Side != a.Side {
			d = append(d, FieldDivergence{prefix + "Side", e.Side, a.Side})
		}
		if !floatEquals(e.Price, a.Price) {
			d = append(d, FieldDivergence{prefix + "Price", e.Price, a.Price})
		}
		if e.Quantity != a.Quantity {
			d = append(d, FieldDivergence{prefix + "Quantity", e.Quantity, a.Quantity})
		}
		if !floatEquals(e.Fee, a.Fee) {
			d = append(d, FieldDivergence{prefix + "Fee", e.Fee, a.Fee})
		}
	}
	return d
}

// CompareEquity compares two equity curves bar by bar.
func CompareEquity(expected, actual []domain.EquityPoint) []FieldDivergence {
	var d []FieldDivergence
	if len(expected) != len(actual) {
		d = append(d, FieldDivergence{Field: "equity.len", Expected: len(expected), Actual: len(actual)})
	}

	for i := 0; i < min(len(expected), len(actual)); i++ {
		e, a := expected[i], actual[i]
		prefix := fmt.Sprintf("equity[%d].", i)
		if e.TimestampMs != a.TimestampMs {
			d = append(d, FieldDivergence{prefix + "TimestampMs", e.TimestampMs, a.TimestampMs})
		}
		if !floatEquals(e.Equity, a.Equity) {
			d = append(d, FieldDivergence{prefix + "Equity", e.Equity, a.Equity})
		}
		if !floatEquals(e.Cash, a.Cash) {
			d = append(d, FieldDivergence{prefix + "Cash", e.Cash, a.Cash})
		}
		if e.Shares != a.Shares {
			d = append(d, FieldDivergence{prefix + "Shares", e.Shares, a.Shares})
		}
	}
	return d
}

// CompareMetrics compares two snapshots key by key in report order.
func CompareMetrics(expected, actual domain.MetricsSnapshot) []FieldDivergence {
	var d []FieldDivergence
	em, am := expected.Map(), actual.Map()
	for _, key := range domain.MetricKeys {
		if !floatEquals(em[key], am[key]) {
			d = append(d, FieldDivergence{Field: "metrics." + key, Expected: em[key], Actual: am[key]})
		}
	}
	return d
}

// CompareRuns compares the stored identity and metrics of two run records.
func CompareRuns(expected, actual *domain.RunRecord) []FieldDivergence {
	var d []FieldDivergence
	if expected.RunID != actual.RunID {
		d = append(d, FieldDivergence{"RunID", expected.RunID, actual.RunID})
	}
	if expected.StrategyID != actual.StrategyID {
		d = append(d, FieldDivergence{"StrategyID", expected.StrategyID, actual.StrategyID})
	}
	if expected.BarCount != actual.BarCount {
		d = append(d, FieldDivergence{"BarCount", expected.BarCount, actual.BarCount})
	}
	if expected.FromMs != actual.FromMs {
		d = append(d, FieldDivergence{"FromMs", expected.FromMs, actual.FromMs})
	}
	if expected.ToMs != actual.ToMs {
		d = append(d, FieldDivergence{"ToMs", expected.ToMs, actual.ToMs})
	}
	return append(d, CompareMetrics(expected.Metrics, actual.Metrics)...)
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN so undefined values compare as reproducible.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
