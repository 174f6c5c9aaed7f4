// Package orchestrator runs parameter sweeps over one price series.
// Flow: load prices once → fan out runs over the window grid → collect in grid order
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"signal-backtest-lab/internal/backtest"
	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/observability"
)

// DefaultConcurrency bounds parallel runs when Options.Concurrency is unset.
const DefaultConcurrency = 4

// Orchestrator errors
var (
	ErrEmptyGrid = errors.New("sweep grid has no valid short < long pairs")
	ErrNoRunner  = errors.New("orchestrator requires a runner")
)

// Orchestrator executes strategy sweeps through a shared backtest.Runner.
type Orchestrator struct {
	runner      *backtest.Runner
	concurrency int
	logger      zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	Runner      *backtest.Runner
	Concurrency int             // max parallel runs; <= 0 uses DefaultConcurrency
	Logger      *zerolog.Logger // nil disables logging
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Runner == nil {
		return nil, ErrNoRunner
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		runner:      opts.Runner,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// SweepRequest describes a grid of moving-average windows to test on one symbol.
type SweepRequest struct {
	Symbol       string
	FromMs       int64 // inclusive; with ToMs == 0 the whole series is used
	ToMs         int64
	StrategyType string
	ShortWindows []int
	LongWindows  []int
}

// SweepRow is the outcome of one grid cell.
type SweepRow struct {
	Config domain.StrategyConfig
	Record *domain.RunRecord // nil when Err is set
	Err    error
}

// SweepResult contains all rows in grid order.
type SweepResult struct {
	Symbol    string
	Bars      int
	Rows      []SweepRow
	Completed int
	Failed    int
}

// Grid expands the window lists into configs, skipping pairs with short >= long.
// Order: short ascending, then long ascending.
func Grid(strategyType string, shorts, longs []int) []domain.StrategyConfig {
	s := append([]int(nil), shorts...)
	l := append([]int(nil), longs...)
	sort.Ints(s)
	sort.Ints(l)

	var out []domain.StrategyConfig
	for _, short := range s {
		for _, long := range l {
			if short <= 0 || short >= long {
				continue
			}
			out = append(out, domain.StrategyConfig{
				StrategyType: strategyType,
				ShortWindow:  short,
				LongWindow:   long,
			})
		}
	}
	return out
}

// Sweep loads the price series once and runs every grid config against it.
// Individual run failures are reported per row; cancellation aborts the sweep.
func (o *Orchestrator) Sweep(ctx context.Context, req SweepRequest) (*SweepResult, error) {
	configs := Grid(req.StrategyType, req.ShortWindows, req.LongWindows)
	if len(configs) == 0 {
		return nil, ErrEmptyGrid
	}

	prices, err := o.runner.LoadPrices(ctx, req.Symbol, req.FromMs, req.ToMs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	o.logger.Info().
		Str("symbol", req.Symbol).
		Int("bars", len(prices)).
		Int("runs", len(configs)).
		Int("concurrency", o.concurrency).
		Msg("sweep started")

	rows := make([]SweepRow, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, cfg := range configs {
		if gctx.Err() != nil {
			break
		}
		rows[i].Config = cfg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := o.runner.Execute(gctx, req.Symbol, prices, cfg)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				rows[i].Err = err
				return nil
			}
			rows[i].Record = out.Record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", req.Symbol, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", req.Symbol, err)
	}

	result := &SweepResult{Symbol: req.Symbol, Bars: len(prices), Rows: rows}
	for _, row := range rows {
		if row.Err != nil {
			result.Failed++
			o.logger.Warn().Err(row.Err).Int("short", row.Config.ShortWindow).Int("long", row.Config.LongWindow).Msg("sweep run failed")
			continue
		}
		result.Completed++
	}

	observability.RecordSweep(len(configs), time.Since(start).Seconds())
	o.logger.Info().
		Str("symbol", req.Symbol).
		Int("completed", result.Completed).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("sweep complete")

	return result, nil
}

// Ranked returns the successful rows ordered by Sharpe ratio descending.
// Ties break on total return, then run ID.
func (r *SweepResult) Ranked() []SweepRow {
	var out []SweepRow
	for _, row := range r.Rows {
		if row.Err == nil && row.Record != nil {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Record, out[j].Record
		if a.Metrics.SharpeRatio != b.Metrics.SharpeRatio {
			return a.Metrics.SharpeRatio > b.Metrics.SharpeRatio
		}
		if a.Metrics.TotalReturnPct != b.Metrics.TotalReturnPct {
			return a.Metrics.TotalReturnPct > b.Metrics.TotalReturnPct
		}
		return a.RunID < b.RunID
	})
	return out
}
