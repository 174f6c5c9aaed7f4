package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/idhash"
	"signal-backtest-lab/internal/metrics"
	"signal-backtest-lab/internal/observability"
	"signal-backtest-lab/internal/storage"
	"signal-backtest-lab/internal/strategy"
	"signal-backtest-lab/internal/trace"
)

// Runner errors
var (
	ErrNoPrices = errors.New("no price data for symbol")
)

// Run status labels
const (
	statusOK    = "ok"
	statusError = "error"
)

// Runner executes full backtests: load prices, generate signals, simulate,
// compute metrics and persist.
type Runner struct {
	priceStore  storage.PriceSeriesStore
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityCurveStore
	simulator   *Simulator
	metricsOpts metrics.Options
	logger      zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
// Nil stores disable the corresponding persistence step.
type RunnerOptions struct {
	PriceStore  storage.PriceSeriesStore
	RunStore    storage.RunStore
	TradeStore  storage.TradeStore
	EquityStore storage.EquityCurveStore
	InitialCash float64
	FeePerTrade float64
	Metrics     metrics.Options // zero value uses metrics.DefaultOptions()
	Logger      *zerolog.Logger // nil disables logging
}

// RunRequest selects the data and strategy for one run.
type RunRequest struct {
	Symbol   string
	FromMs   int64 // inclusive; with ToMs == 0 the whole series is used
	ToMs     int64 // inclusive
	Strategy domain.StrategyConfig
}

// RunOutput holds everything produced by one run.
type RunOutput struct {
	Record     *domain.RunRecord
	Prices     []*domain.PricePoint
	Signals    []*domain.SignalPoint
	Indicators map[string][]float64
	Result     *Result
	Persisted  bool // false when stores are disabled or the run already existed
}

// NewRunner creates a backtest runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	sim, err := NewSimulator(opts.InitialCash, opts.FeePerTrade)
	if err != nil {
		return nil, err
	}

	mopts := opts.Metrics
	if mopts == (metrics.Options{}) {
		mopts = metrics.DefaultOptions()
	}
	if mopts.PeriodsPerYear <= 0 {
		mopts.PeriodsPerYear = metrics.DefaultPeriodsPerYear
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Runner{
		priceStore:  opts.PriceStore,
		runStore:    opts.RunStore,
		tradeStore:  opts.TradeStore,
		equityStore: opts.EquityStore,
		simulator:   sim,
		metricsOpts: mopts,
		logger:      logger.With().Str("component", "backtest").Logger(),
	}, nil
}

// Run loads the price series for the request and executes it.
// Returns ErrNoPrices if the store has no bars in range.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunOutput, error) {
	prices, err := r.LoadPrices(ctx, req.Symbol, req.FromMs, req.ToMs)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx, req.Symbol, prices, req.Strategy)
}

// LoadPrices reads a price series from the price store.
func (r *Runner) LoadPrices(ctx context.Context, symbol string, fromMs, toMs int64) ([]*domain.PricePoint, error) {
	if r.priceStore == nil {
		return nil, fmt.Errorf("load prices: %w: no price store configured", storage.ErrInvalidInput)
	}

	ctx, span := trace.StartSpan(ctx, "backtest.load_prices", attribute.String("symbol", symbol))
	defer span.End()

	var (
		prices []*domain.PricePoint
		err    error
	)
	if toMs == 0 {
		prices, err = r.priceStore.GetBySymbol(ctx, symbol)
	} else {
		prices, err = r.priceStore.GetByTimeRange(ctx, symbol, fromMs, toMs)
	}
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrices, symbol)
	}
	return prices, nil
}

// Execute runs a strategy over an already loaded price series.
// Steps:
//  1. Build generator via strategy.FromConfig(cfg)
//  2. Generate signals
//  3. Simulate
//  4. Compute metrics
//  5. Assign deterministic run ID
//  6. Persist run, trades and equity curve
func (r *Runner) Execute(ctx context.Context, symbol string, prices []*domain.PricePoint, cfg domain.StrategyConfig) (*RunOutput, error) {
	start := time.Now()
	ctx, span := trace.StartSpan(ctx, "backtest.execute",
		attribute.String("symbol", symbol),
		attribute.String("strategy_type", cfg.StrategyType),
		attribute.Int("bars", len(prices)),
	)
	defer span.End()

	out, err := r.execute(ctx, symbol, prices, cfg)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		observability.RecordRun(cfg.StrategyType, statusError, elapsed)
		r.logger.Error().Err(err).Str("symbol", symbol).Str("strategy_type", cfg.StrategyType).Msg("backtest failed")
		return nil, err
	}

	observability.RecordRun(cfg.StrategyType, statusOK, elapsed)
	observability.RecordBars(len(prices))
	for _, t := range out.Result.Trades {
		observability.RecordTrade(string(t.Side))
	}
	observability.UpdateFinalValue(symbol, out.Record.Metrics.FinalValue)

	r.logger.Info().
		Str("run_id", out.Record.RunID).
		Str("symbol", symbol).
		Str("strategy_id", out.Record.StrategyID).
		Int("bars", len(prices)).
		Int("trades", out.Record.Metrics.TradeCount).
		Float64("final_value", out.Record.Metrics.FinalValue).
		Bool("persisted", out.Persisted).
		Dur("elapsed", time.Since(start)).
		Msg("backtest complete")

	return out, nil
}

func (r *Runner) execute(ctx context.Context, symbol string, prices []*domain.PricePoint, cfg domain.StrategyConfig) (*RunOutput, error) {
	// 1. Build generator via factory
	gen, err := strategy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	// 2. Generate signals
	sigCtx, sigSpan := trace.StartSpan(ctx, "backtest.generate_signals", attribute.String("strategy_id", gen.ID()))
	signals, err := gen.GenerateSignals(sigCtx, prices)
	sigSpan.End()
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}

	// 3. Simulate
	_, simSpan := trace.StartSpan(ctx, "backtest.simulate")
	result, err := r.simulator.Run(prices, signals.Signals)
	simSpan.End()
	if err != nil {
		return nil, err
	}

	// 4. Compute metrics
	snap := metrics.Compute(result.Equity, result.Trades, r.metricsOpts)

	// 5. Assign deterministic run ID
	record := &domain.RunRecord{
		Symbol:         symbol,
		StrategyID:     gen.ID(),
		InitialCash:    r.simulator.initialCash.InexactFloat64(),
		FeePerTrade:    r.simulator.fee.InexactFloat64(),
		BarCount:       len(prices),
		PeriodsPerYear: r.metricsOpts.PeriodsPerYear,
		RiskFreeRate:   r.metricsOpts.RiskFreeRate,
		Metrics:        snap,
	}
	if len(prices) > 0 {
		record.FromMs = prices[0].TimestampMs
		record.ToMs = prices[len(prices)-1].TimestampMs
	}
	record.RunID = idhash.ComputeRunID(idhash.RunKey{
		Symbol:         record.Symbol,
		StrategyID:     record.StrategyID,
		InitialCash:    record.InitialCash,
		FeePerTrade:    record.FeePerTrade,
		FromMs:         record.FromMs,
		ToMs:           record.ToMs,
		BarCount:       record.BarCount,
		SeriesDigest:   idhash.ComputeSeriesDigest(prices),
		PeriodsPerYear: record.PeriodsPerYear,
		RiskFreeRate:   record.RiskFreeRate,
	})

	out := &RunOutput{
		Record:     record,
		Prices:     prices,
		Signals:    signals.Signals,
		Indicators: signals.Indicators,
		Result:     result,
	}

	// 6. Persist
	persisted, err := r.persist(ctx, record, result)
	if err != nil {
		return nil, err
	}
	out.Persisted = persisted

	return out, nil
}

// persist stores the run record, then its trades and equity curve.
// An existing run_id is not an error: the run is deterministic, so stored
// rows already match. A run row left behind by an earlier failed save is
// repaired by writing the trades or equity curve that are missing.
func (r *Runner) persist(ctx context.Context, record *domain.RunRecord, result *Result) (bool, error) {
	if r.runStore == nil {
		return false, nil
	}

	ctx, span := trace.StartSpan(ctx, "backtest.persist", attribute.String("run_id", record.RunID))
	defer span.End()

	if err := r.runStore.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return r.repair(ctx, record.RunID, result)
		}
		return false, fmt.Errorf("store run: %w", err)
	}

	if err := r.storeTrades(ctx, record.RunID, result.Trades); err != nil {
		return false, err
	}
	if err := r.storeEquity(ctx, record.RunID, result.Equity); err != nil {
		return false, err
	}
	return true, nil
}

// repair fills in the trade log and equity curve of an already stored run
// when they are absent. Returns true if anything was written.
func (r *Runner) repair(ctx context.Context, runID string, result *Result) (bool, error) {
	repaired := false

	if r.tradeStore != nil && len(result.Trades) > 0 {
		stored, err := r.tradeStore.GetByRunID(ctx, runID)
		if err != nil {
			return false, fmt.Errorf("check stored trades: %w", err)
		}
		if len(stored) == 0 {
			if err := r.storeTrades(ctx, runID, result.Trades); err != nil {
				return false, err
			}
			repaired = true
		}
	}

	if r.equityStore != nil && len(result.Equity) > 0 {
		stored, err := r.equityStore.GetByRunID(ctx, runID)
		if err != nil {
			return false, fmt.Errorf("check stored equity curve: %w", err)
		}
		if len(stored) == 0 {
			if err := r.storeEquity(ctx, runID, result.Equity); err != nil {
				return false, err
			}
			repaired = true
		}
	}

	if repaired {
		r.logger.Warn().Str("run_id", runID).Msg("repaired partially stored run")
	} else {
		r.logger.Debug().Str("run_id", runID).Msg("run already stored")
	}
	return repaired, nil
}

func (r *Runner) storeTrades(ctx context.Context, runID string, trades []domain.Trade) error {
	if r.tradeStore == nil {
		return nil
	}
	if err := r.tradeStore.InsertBulk(ctx, runID, trades); err != nil {
		return fmt.Errorf("store trades: %w", err)
	}
	return nil
}

func (r *Runner) storeEquity(ctx context.Context, runID string, curve []domain.EquityPoint) error {
	if r.equityStore == nil {
		return nil
	}
	if err := r.equityStore.InsertBulk(ctx, runID, curve); err != nil {
		return fmt.Errorf("store equity curve: %w", err)
	}
	return nil
}
