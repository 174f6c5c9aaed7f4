package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signal-backtest-lab/internal/orchestrator"
	"signal-backtest-lab/internal/reporting"
)

var (
	sweepStrategy    string
	sweepShorts      []int
	sweepLongs       []int
	sweepConcurrency int
	sweepPersist     bool
	sweepTop         int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a grid of short/long window combinations",
	Long: `Sweep runs every short/long window pair with short < long against the
same price series, in parallel, and ranks the results by Sharpe ratio.

sweep_results.csv and sweep.md are written to <output-dir>/sweep_<symbol>/.`,
	Example: `  backtest sweep --csv data/SPY.csv --short 10,20,50 --long 100,150,200
  backtest sweep --symbol SPY --strategy MA_CROSSOVER_EVENT --concurrency 8`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	addDataFlags(sweepCmd)
	f := sweepCmd.Flags()
	f.StringVar(&sweepStrategy, "strategy", "", "Strategy type: MA_CROSSOVER, MA_CROSSOVER_EVENT")
	f.IntSliceVar(&sweepShorts, "short", nil, "Short windows")
	f.IntSliceVar(&sweepLongs, "long", nil, "Long windows")
	f.IntVar(&sweepConcurrency, "concurrency", 0, "Parallel runs")
	f.BoolVar(&sweepPersist, "persist", false, "Store every run")
	f.IntVar(&sweepTop, "top", 10, "Rows to print, ranked by Sharpe ratio")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy.Type = strings.ToUpper(sweepStrategy)
	}
	if flags.Changed("short") {
		cfg.Sweep.ShortWindows = sweepShorts
	}
	if flags.Changed("long") {
		cfg.Sweep.LongWindows = sweepLongs
	}
	if flags.Changed("concurrency") {
		cfg.Sweep.Concurrency = sweepConcurrency
	}
	if err := applyDataFlags(cmd, cfg); err != nil {
		return err
	}
	fromMs, toMs, err := cfg.Range()
	if err != nil {
		return err
	}

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Data.CSVPath != "" {
		if _, err := importCSV(ctx, stores.prices, cfg.Data.Symbol, cfg.Data.CSVPath, fromMs, toMs); err != nil {
			return fmt.Errorf("import csv: %w", err)
		}
	}

	runner, err := newRunner(cfg, stores, sweepPersist)
	if err != nil {
		return err
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Runner:      runner,
		Concurrency: cfg.Sweep.Concurrency,
		Logger:      &logger,
	})
	if err != nil {
		return err
	}

	res, err := orch.Sweep(ctx, orchestrator.SweepRequest{
		Symbol:       cfg.Data.Symbol,
		FromMs:       fromMs,
		ToMs:         toMs,
		StrategyType: cfg.Strategy.Type,
		ShortWindows: cfg.Sweep.ShortWindows,
		LongWindows:  cfg.Sweep.LongWindows,
	})
	if err != nil {
		return err
	}

	printSweep(res, sweepTop)

	dir := filepath.Join(cfg.OutputDir, "sweep_"+res.Symbol)
	paths, err := reporting.WriteSweepFiles(dir, res, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write sweep files: %w", err)
	}
	logger.Info().Str("dir", dir).Int("files", len(paths)).Msg("sweep files written")
	return nil
}

func printSweep(res *orchestrator.SweepResult, top int) {
	fmt.Printf("Sweep %s: %d bars, %d runs (%d failed)\n\n", res.Symbol, res.Bars, res.Completed+res.Failed, res.Failed)
	fmt.Printf("%-28s %10s %10s %10s %8s %7s\n", "Strategy", "Return %", "Max DD %", "Sharpe", "Win %", "Trades")

	ranked := res.Ranked()
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	for _, row := range ranked {
		m := row.Record.Metrics
		fmt.Printf("%-28s %10.2f %10.2f %10.4f %8.2f %7d\n",
			row.Record.StrategyID, m.TotalReturnPct, m.MaxDrawdownPct, m.SharpeRatio, m.WinRatePct, m.TradeCount)
	}
	for _, row := range res.Rows {
		if row.Err != nil {
			fmt.Printf("FAILED %s_%d_%d: %v\n", row.Config.StrategyType, row.Config.ShortWindow, row.Config.LongWindow, row.Err)
		}
	}
}
