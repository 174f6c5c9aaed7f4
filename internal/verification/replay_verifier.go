package verification

import (
	"context"
	"errors"
	"fmt"

	"signal-backtest-lab/internal/backtest"
	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/metrics"
	"signal-backtest-lab/internal/storage"
	"signal-backtest-lab/internal/strategy"
)

var (
	// ErrRunNotFound is returned when run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")
)

// ReplayVerifier implements Verifier by re-executing stored runs from the price store.
type ReplayVerifier struct {
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityCurveStore
	priceStore  storage.PriceSeriesStore
	metricsOpts metrics.Options
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
// Trade and equity stores are optional; without them only metrics are compared.
type ReplayVerifierOptions struct {
	RunStore    storage.RunStore
	TradeStore  storage.TradeStore
	EquityStore storage.EquityCurveStore
	PriceStore  storage.PriceSeriesStore
	Metrics     metrics.Options
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:    opts.RunStore,
		tradeStore:  opts.TradeStore,
		equityStore: opts.EquityStore,
		priceStore:  opts.PriceStore,
		metricsOpts: opts.Metrics,
	}
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun replays a stored run with its recorded cash, fee, window and strategy.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	cfg, err := strategy.ParseID(stored.StrategyID)
	if err != nil {
		return nil, fmt.Errorf("parse strategy id: %w", err)
	}

	// Replay without persistence.
	runner, err := backtest.NewRunner(backtest.RunnerOptions{
		PriceStore:  v.priceStore,
		InitialCash: stored.InitialCash,
		FeePerTrade: stored.FeePerTrade,
		Metrics:     metrics.OptionsFor(stored, v.metricsOpts),
	})
	if err != nil {
		return nil, err
	}

	replayed, err := runner.Run(ctx, backtest.RunRequest{
		Symbol:   stored.Symbol,
		FromMs:   stored.FromMs,
		ToMs:     stored.ToMs,
		Strategy: cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}

	divergences := CompareRuns(stored, replayed.Record)

	if v.tradeStore != nil {
		trades, err := v.tradeStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load trades: %w", err)
		}
		divergences = append(divergences, CompareTrades(trades, replayed.Result.Trades)...)
	}
	if v.equityStore != nil {
		curve, err := v.equityStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load equity curve: %w", err)
		}
		divergences = append(divergences, CompareEquity(curve, replayed.Result.Equity)...)
	}

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// VerifySymbol verifies all stored runs of a symbol.
// Replay errors are recorded as divergences rather than aborting the batch.
func (v *ReplayVerifier) VerifySymbol(ctx context.Context, symbol string) (*VerificationReport, error) {
	runs, err := v.runStore.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			report.Results = append(report.Results, VerificationResult{
				RunID: run.RunID,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// CheckDeterminism executes the same run twice and compares every output.
func CheckDeterminism(ctx context.Context, runner *backtest.Runner, symbol string, prices []*domain.PricePoint, cfg domain.StrategyConfig) (*VerificationResult, error) {
	first, err := runner.Execute(ctx, symbol, prices, cfg)
	if err != nil {
		return nil, err
	}
	second, err := runner.Execute(ctx, symbol, prices, cfg)
	if err != nil {
		return nil, err
	}

	divergences := CompareRuns(first.Record, second.Record)
	divergences = append(divergences, CompareTrades(first.Result.Trades, second.Result.Trades)...)
	divergences = append(divergences, CompareEquity(first.Result.Equity, second.Result.Equity)...)

	return &VerificationResult{
		RunID:       first.Record.RunID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}
