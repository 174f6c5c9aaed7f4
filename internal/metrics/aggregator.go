package metrics

import (
	"context"
	"errors"
	"fmt"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// ErrNoEquity is returned when a run has no stored equity curve.
var ErrNoEquity = errors.New("no equity curve available for run")

// Aggregator recomputes metrics for persisted runs.
type Aggregator struct {
	equityStore storage.EquityCurveStore
	tradeStore  storage.TradeStore
	opts        Options
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(equityStore storage.EquityCurveStore, tradeStore storage.TradeStore, opts Options) *Aggregator {
	return &Aggregator{
		equityStore: equityStore,
		tradeStore:  tradeStore,
		opts:        opts,
	}
}

// OptionsFor returns the options a stored run was computed with.
// Records written without them (PeriodsPerYear 0) fall back to fallback.
func OptionsFor(run *domain.RunRecord, fallback Options) Options {
	if run == nil || run.PeriodsPerYear <= 0 {
		return fallback
	}
	return Options{PeriodsPerYear: run.PeriodsPerYear, RiskFreeRate: run.RiskFreeRate}
}

// ComputeForRecord recomputes a stored run with the options recorded on it.
func (a *Aggregator) ComputeForRecord(ctx context.Context, run *domain.RunRecord) (domain.MetricsSnapshot, error) {
	return a.compute(ctx, run.RunID, OptionsFor(run, a.opts))
}

// ComputeForRun loads the stored curve and trade log of a run and computes
// its snapshot. Returns ErrNoEquity if the run has no stored curve.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) (domain.MetricsSnapshot, error) {
	return a.compute(ctx, runID, a.opts)
}

func (a *Aggregator) compute(ctx context.Context, runID string, opts Options) (domain.MetricsSnapshot, error) {
	curve, err := a.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return domain.MetricsSnapshot{}, fmt.Errorf("load equity curve: %w", err)
	}
	if len(curve) == 0 {
		return domain.MetricsSnapshot{}, ErrNoEquity
	}

	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return domain.MetricsSnapshot{}, fmt.Errorf("load trades: %w", err)
	}

	return Compute(curve, trades, opts), nil
}
