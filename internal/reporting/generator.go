package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"signal-backtest-lab/internal/backtest"
	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/indicators"
	"signal-backtest-lab/internal/metrics"
	"signal-backtest-lab/internal/storage"
	"signal-backtest-lab/internal/strategy"
)

// Generator produces reports from runner output or from stored runs.
type Generator struct {
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityCurveStore
	priceStore  storage.PriceSeriesStore
	aggregator  *metrics.Aggregator
	now         func() time.Time // Injectable clock for deterministic output
}

// GeneratorOptions configures a Generator. Only FromOutput works without stores.
type GeneratorOptions struct {
	RunStore    storage.RunStore
	TradeStore  storage.TradeStore
	EquityStore storage.EquityCurveStore
	PriceStore  storage.PriceSeriesStore // optional; enables chart overlays for stored runs
	Metrics     metrics.Options
}

// NewGenerator creates a new report generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	mopts := opts.Metrics
	if mopts == (metrics.Options{}) {
		mopts = metrics.DefaultOptions()
	}
	g := &Generator{
		runStore:    opts.RunStore,
		tradeStore:  opts.TradeStore,
		equityStore: opts.EquityStore,
		priceStore:  opts.PriceStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if opts.EquityStore != nil && opts.TradeStore != nil {
		g.aggregator = metrics.NewAggregator(opts.EquityStore, opts.TradeStore, mopts)
	}
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FromOutput builds a report from a finished run.
func (g *Generator) FromOutput(out *backtest.RunOutput) *Report {
	return &Report{
		GeneratedAt: g.now(),
		Run:         out.Record,
		Trades:      out.Result.Trades,
		Equity:      out.Result.Equity,
		Drawdown:    metrics.DrawdownSeries(domain.EquityValues(out.Result.Equity)),
		Prices:      out.Prices,
		Signals:     out.Signals,
		Indicators:  withStudies(out.Prices, out.Indicators),
	}
}

// Generate rebuilds the report of a stored run.
// Metrics are recomputed from the stored equity curve and trade log.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	if g.runStore == nil || g.aggregator == nil {
		return nil, fmt.Errorf("%w: generator has no run, trade or equity store", storage.ErrInvalidInput)
	}

	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	snap, err := g.aggregator.ComputeForRecord(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("recompute metrics: %w", err)
	}
	recomputed := *run
	recomputed.Metrics = snap

	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	curve, err := g.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load equity curve: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		Run:         &recomputed,
		Trades:      trades,
		Equity:      curve,
		Drawdown:    metrics.DrawdownSeries(domain.EquityValues(curve)),
	}

	if g.priceStore != nil {
		if err := g.attachOverlay(ctx, report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// attachOverlay reloads the run's price window and regenerates its signals.
func (g *Generator) attachOverlay(ctx context.Context, report *Report) error {
	run := report.Run
	prices, err := g.priceStore.GetByTimeRange(ctx, run.Symbol, run.FromMs, run.ToMs)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	if len(prices) == 0 {
		return nil
	}

	cfg, err := strategy.ParseID(run.StrategyID)
	if err != nil {
		if errors.Is(err, strategy.ErrUnknownStrategyType) {
			report.Prices = prices
			return nil
		}
		return err
	}
	gen, err := strategy.FromConfig(cfg)
	if err != nil {
		return err
	}
	out, err := gen.GenerateSignals(ctx, prices)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}

	report.Prices = prices
	report.Signals = out.Signals
	report.Indicators = withStudies(prices, out.Indicators)
	return nil
}

// RSIWindow is the lookback of the RSI column in chart exports.
const RSIWindow = 14

// withStudies returns a copy of the strategy's indicator series extended with
// an EMA for every SMA window and an RSI column. Series are aligned with prices.
func withStudies(prices []*domain.PricePoint, base map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(base)+3)
	for k, v := range base {
		out[k] = v
	}
	if len(prices) == 0 {
		return out
	}

	values := domain.PriceValues(prices)
	for k := range base {
		name, window := splitIndicatorKey(k)
		if name != indicators.NameSMA || window < 1 {
			continue
		}
		emaKey := strategy.IndicatorKey(indicators.NameEMA, window)
		if _, exists := out[emaKey]; exists {
			continue
		}
		if ema, err := indicators.EMA(values, window); err == nil {
			out[emaKey] = ema
		}
	}

	rsiKey := strategy.IndicatorKey(indicators.NameRSI, RSIWindow)
	if _, exists := out[rsiKey]; !exists {
		if rsi, err := indicators.RSI(values, RSIWindow); err == nil {
			out[rsiKey] = rsi
		}
	}
	return out
}

// sortIndicatorKeys orders keys by name, then by numeric window ("SMA_5" < "SMA_20").
func sortIndicatorKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		ni, wi := splitIndicatorKey(keys[i])
		nj, wj := splitIndicatorKey(keys[j])
		if ni != nj {
			return ni < nj
		}
		if wi != wj {
			return wi < wj
		}
		return keys[i] < keys[j]
	})
}

func splitIndicatorKey(key string) (string, int) {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return key, 0
	}
	w, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return key, 0
	}
	return key[:idx], w
}
