package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"signal-backtest-lab/internal/domain"
)

// RunKey holds the inputs that identify a backtest run.
type RunKey struct {
	Symbol         string
	StrategyID     string
	InitialCash    float64
	FeePerTrade    float64
	FromMs         int64
	ToMs           int64
	BarCount       int
	SeriesDigest   string // ComputeSeriesDigest of the price series
	PeriodsPerYear int
	RiskFreeRate   float64
}

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|strategy_id|initial_cash|fee|from_ms|to_ms|bar_count|series_digest|periods_per_year|risk_free_rate)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(k RunKey) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d|%s|%d|%s",
		k.Symbol,
		k.StrategyID,
		formatFloat(k.InitialCash),
		formatFloat(k.FeePerTrade),
		k.FromMs,
		k.ToMs,
		k.BarCount,
		k.SeriesDigest,
		k.PeriodsPerYear,
		formatFloat(k.RiskFreeRate),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSeriesDigest hashes the (timestamp, price) pairs of a series in order.
// Returns hex-encoded hash (64 characters).
func ComputeSeriesDigest(prices []*domain.PricePoint) string {
	h := sha256.New()
	for _, p := range prices {
		if p == nil {
			continue
		}
		fmt.Fprintf(h, "%d|%s\n", p.TimestampMs, formatFloat(p.Price))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
