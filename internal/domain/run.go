package domain

// MetricsSnapshot is the flat set of performance statistics for one run.
type MetricsSnapshot struct {
	TotalReturnPct float64
	CAGRPct        float64
	MaxDrawdownPct float64 // <= 0
	VolatilityPct  float64 // annualized
	SharpeRatio    float64 // annualized
	WinRatePct     float64 // share of winning round trips
	TradeCount     int     // executed trades, buys and sells
	RoundTrips     int     // completed buy->sell pairs
	FinalValue     float64 // last equity value
}

// Metric keys in report order.
const (
	MetricTotalReturn = "total_return"
	MetricCAGR        = "cagr"
	MetricMaxDrawdown = "max_drawdown"
	MetricVolatility  = "volatility"
	MetricSharpe      = "sharpe_ratio"
	MetricWinRate     = "win_rate"
	MetricTradeCount  = "num_trades"
	MetricRoundTrips  = "round_trips"
	MetricFinalValue  = "final_value"
)

// MetricKeys lists the keys of MetricsSnapshot.Map in report order.
var MetricKeys = []string{
	MetricFinalValue,
	MetricTotalReturn,
	MetricCAGR,
	MetricMaxDrawdown,
	MetricVolatility,
	MetricSharpe,
	MetricWinRate,
	MetricTradeCount,
	MetricRoundTrips,
}

// Map flattens the snapshot into a key -> value record.
func (m MetricsSnapshot) Map() map[string]float64 {
	return map[string]float64{
		MetricTotalReturn: m.TotalReturnPct,
		MetricCAGR:        m.CAGRPct,
		MetricMaxDrawdown: m.MaxDrawdownPct,
		MetricVolatility:  m.VolatilityPct,
		MetricSharpe:      m.SharpeRatio,
		MetricWinRate:     m.WinRatePct,
		MetricTradeCount:  float64(m.TradeCount),
		MetricRoundTrips:  float64(m.RoundTrips),
		MetricFinalValue:  m.FinalValue,
	}
}

// RunRecord describes one persisted backtest run.
// Corresponds to backtest_runs table in PostgreSQL.
type RunRecord struct {
	RunID          string // deterministic hash of the run inputs
	Symbol         string
	StrategyID     string // e.g. MA_CROSSOVER_50_200
	InitialCash    float64
	FeePerTrade    float64
	FromMs         int64 // first bar timestamp
	ToMs           int64 // last bar timestamp
	BarCount       int
	PeriodsPerYear int     // annualization used for Metrics
	RiskFreeRate   float64 // annual risk-free rate used for Metrics
	Metrics        MetricsSnapshot
}
