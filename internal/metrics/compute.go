// Package metrics derives performance statistics from an equity curve and
// trade log. All functions are pure and total: degenerate inputs yield 0,
// never NaN or Inf.
package metrics

import (
	"math"

	"signal-backtest-lab/internal/domain"
)

// Defaults used by DefaultOptions.
const (
	DefaultPeriodsPerYear = 252
	DefaultRiskFreeRate   = 0.02
)

// Options controls annualization.
type Options struct {
	PeriodsPerYear int     // bars per year, 252 for daily equities
	RiskFreeRate   float64 // annual rate, e.g. 0.02
}

// DefaultOptions returns daily-bar annualization with a 2% risk-free rate.
func DefaultOptions() Options {
	return Options{
		PeriodsPerYear: DefaultPeriodsPerYear,
		RiskFreeRate:   DefaultRiskFreeRate,
	}
}

// Compute builds the full metrics snapshot for one run.
func Compute(curve []domain.EquityPoint, trades []domain.Trade, opts Options) domain.MetricsSnapshot {
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultPeriodsPerYear
	}

	equity := domain.EquityValues(curve)
	returns := Returns(equity)

	snap := domain.MetricsSnapshot{
		TotalReturnPct: TotalReturn(equity),
		CAGRPct:        CAGR(equity, opts.PeriodsPerYear),
		MaxDrawdownPct: MaxDrawdown(equity),
		VolatilityPct:  Volatility(returns, opts.PeriodsPerYear),
		SharpeRatio:    SharpeRatio(returns, opts.RiskFreeRate, opts.PeriodsPerYear),
		WinRatePct:     WinRate(trades),
		TradeCount:     len(trades),
		RoundTrips:     RoundTrips(trades),
	}
	if len(equity) > 0 {
		snap.FinalValue = equity[len(equity)-1]
	}
	return snap
}

// TotalReturn is (last-first)/first in percent.
func TotalReturn(equity []float64) float64 {
	if len(equity) == 0 || equity[0] <= 0 {
		return 0
	}
	return finiteOrZero((equity[len(equity)-1] - equity[0]) / equity[0] * 100)
}

// CAGR is the compound annual growth rate in percent, with
// years = len(equity) / periodsPerYear.
func CAGR(equity []float64, periodsPerYear int) float64 {
	n := len(equity)
	if n < 2 || periodsPerYear <= 0 {
		return 0
	}
	years := float64(n) / float64(periodsPerYear)
	first, last := equity[0], equity[n-1]
	if years <= 0 || first <= 0 || last < 0 {
		return 0
	}
	return finiteOrZero((math.Pow(last/first, 1/years) - 1) * 100)
}

// MaxDrawdown is the most negative peak-to-trough decline in percent (<= 0).
func MaxDrawdown(equity []float64) float64 {
	worst := 0.0
	for _, dd := range DrawdownSeries(equity) {
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// DrawdownSeries returns the per-bar decline from the running maximum in
// percent. Bars where the running maximum is not positive report 0.
func DrawdownSeries(equity []float64) []float64 {
	if len(equity) == 0 {
		return nil
	}
	out := make([]float64, len(equity))
	peak := equity[0]
	for i, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		out[i] = finiteOrZero((e - peak) / peak * 100)
	}
	return out
}

// Returns is the per-period percentage change of equity with the first bar
// dropped. A step from a non-positive value is reported as 0.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev <= 0 {
			continue
		}
		out[i-1] = finiteOrZero(equity[i]/prev - 1)
	}
	return out
}

// Volatility is the annualized sample standard deviation of returns in percent.
func Volatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	sd := computeStddev(returns, computeMean(returns))
	return finiteOrZero(sd * math.Sqrt(float64(periodsPerYear)) * 100)
}

// SharpeRatio is the annualized mean excess return over the standard
// deviation of raw returns. Zero deviation yields 0.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	sd := computeStddev(returns, computeMean(returns))
	if sd == 0 || !isFinite(sd) {
		return 0
	}
	perPeriod := riskFreeRate / float64(periodsPerYear)
	excess := 0.0
	for _, r := range returns {
		excess += r - perPeriod
	}
	excess /= float64(len(returns))
	return finiteOrZero(excess / sd * math.Sqrt(float64(periodsPerYear)))
}

// WinRate is the share of completed round trips, a buy immediately followed
// by a sell, where the sell price is strictly above the buy price, in percent.
// An open trailing buy is not counted.
func WinRate(trades []domain.Trade) float64 {
	wins, total := countRoundTrips(trades)
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// RoundTrips counts completed buy->sell pairs.
func RoundTrips(trades []domain.Trade) int {
	_, total := countRoundTrips(trades)
	return total
}

func countRoundTrips(trades []domain.Trade) (wins, total int) {
	for i := 0; i+1 < len(trades); i++ {
		buy, sell := trades[i], trades[i+1]
		if buy.Side != domain.SideBuy || sell.Side != domain.SideSell {
			continue
		}
		total++
		if sell.Price > buy.Price {
			wins++
		}
	}
	return wins, total
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
