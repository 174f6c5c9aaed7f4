package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"signal-backtest-lab/internal/config"
	"signal-backtest-lab/internal/reporting"
	"signal-backtest-lab/internal/storage"
)

var (
	reportSymbol string
	reportNoFile bool
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id...]",
	Short: "Re-render reports for stored runs",
	Long: `Report loads stored runs with their trades and equity curves, recomputes
the metrics from the stored curve and rewrites the report files. Either
pass run IDs or --symbol to report every stored run of a symbol.`,
	Example: `  backtest report 3f2a9c... --postgres-dsn ... --clickhouse-dsn ...
  backtest report --symbol SPY --postgres-dsn ... --clickhouse-dsn ...`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportSymbol, "symbol", "", "Report every stored run of this symbol")
	reportCmd.Flags().BoolVar(&reportNoFile, "no-files", false, "Print only, do not write files")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Storage.Backend != config.StorageDatabase {
		return errors.New("report needs persisted runs: pass --postgres-dsn and --clickhouse-dsn")
	}

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runIDs := args
	if reportSymbol != "" {
		records, err := stores.runs.GetBySymbol(ctx, reportSymbol)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		for _, r := range records {
			runIDs = append(runIDs, r.RunID)
		}
	}
	if len(runIDs) == 0 {
		return errors.New("no runs selected: pass run IDs or --symbol")
	}

	gen := reporting.NewGenerator(reporting.GeneratorOptions{
		RunStore:    stores.runs,
		TradeStore:  stores.trades,
		EquityStore: stores.equity,
		PriceStore:  stores.prices,
		Metrics:     cfg.MetricsOptions(),
	})

	for _, id := range runIDs {
		report, err := gen.Generate(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("run %s not found", id)
			}
			return fmt.Errorf("generate report %s: %w", id, err)
		}

		fmt.Print(reporting.RenderText(report))
		fmt.Println()

		if reportNoFile {
			continue
		}
		dir := filepath.Join(cfg.OutputDir, id)
		if _, err := reporting.WriteRunFiles(dir, report); err != nil {
			return fmt.Errorf("write report files: %w", err)
		}
		logger.Info().Str("run_id", id).Str("dir", dir).Msg("report written")
	}
	return nil
}
