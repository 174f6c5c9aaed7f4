package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"signal-backtest-lab/internal/backtest"
	"signal-backtest-lab/internal/config"
	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/reporting"
	"signal-backtest-lab/internal/verification"
)

// Data selection flags shared by run and sweep.
var (
	dataSymbol string
	dataCSV    string
	dataFrom   string
	dataTo     string
)

var (
	runStrategy string
	runShort    int
	runLong     int
	runCash     float64
	runFee      float64
	runJSON     bool
	runNoFiles  bool
	runPersist  bool
	runVerify   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest",
	Long: `Run one moving-average crossover backtest and print the results block.

Report files (Markdown, metrics, trades, round trips, equity curve,
drawdown and the price/SMA overlay) are written to <output-dir>/<run-id>/.`,
	Example: `  # Classic 50/200 crossover on a CSV file
  backtest run --csv data/SPY.csv --symbol SPY

  # Event variant with custom windows and a flat fee
  backtest run --csv data/SPY.csv --strategy MA_CROSSOVER_EVENT --short 20 --long 100 --fee 1

  # Run against prices already imported into ClickHouse
  backtest run --symbol SPY --from 2015-01-01 --to 2020-12-31 --postgres-dsn ... --clickhouse-dsn ...`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addDataFlags(runCmd)
	f := runCmd.Flags()
	f.StringVar(&runStrategy, "strategy", "", "Strategy type: MA_CROSSOVER, MA_CROSSOVER_EVENT")
	f.IntVar(&runShort, "short", 0, "Short moving-average window")
	f.IntVar(&runLong, "long", 0, "Long moving-average window")
	f.Float64Var(&runCash, "cash", 0, "Initial cash")
	f.Float64Var(&runFee, "fee", 0, "Flat fee per trade")
	f.BoolVar(&runJSON, "json", false, "Print results as JSON")
	f.BoolVar(&runNoFiles, "no-files", false, "Skip writing report files")
	f.BoolVar(&runPersist, "persist", true, "Store run, trades and equity curve")
	f.BoolVar(&runVerify, "verify", false, "Re-run and check the results are identical")
}

func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&dataSymbol, "symbol", "", "Symbol to backtest (defaults to the CSV file name)")
	f.StringVar(&dataCSV, "csv", "", "CSV file with a date and a close/price column")
	f.StringVar(&dataFrom, "from", "", "First date, YYYY-MM-DD (inclusive)")
	f.StringVar(&dataTo, "to", "", "Last date, YYYY-MM-DD (inclusive)")
}

// applyDataFlags merges data flags into the config and resolves the symbol.
func applyDataFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		c.Data.Symbol = dataSymbol
	}
	if flags.Changed("csv") {
		c.Data.CSVPath = dataCSV
	}
	if flags.Changed("from") {
		c.Data.From = dataFrom
	}
	if flags.Changed("to") {
		c.Data.To = dataTo
	}
	if c.Data.Symbol == "" && c.Data.CSVPath != "" {
		c.Data.Symbol = symbolFromPath(c.Data.CSVPath)
	}
	if c.Data.Symbol == "" {
		return fmt.Errorf("--symbol or --csv is required")
	}
	return c.Validate()
}

// symbolFromPath derives a symbol from a file name: data/spy.csv -> SPY.
func symbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy.Type = strings.ToUpper(runStrategy)
	}
	if flags.Changed("short") {
		cfg.Strategy.ShortWindow = runShort
	}
	if flags.Changed("long") {
		cfg.Strategy.LongWindow = runLong
	}
	if flags.Changed("cash") {
		cfg.Backtest.InitialCash = runCash
	}
	if flags.Changed("fee") {
		cfg.Backtest.FeePerTrade = runFee
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

	runner, err := newRunner(cfg, stores, runPersist)
	if err != nil {
		return err
	}

	out, err := runner.Run(ctx, backtest.RunRequest{
		Symbol:   cfg.Data.Symbol,
		FromMs:   fromMs,
		ToMs:     toMs,
		Strategy: cfg.StrategyConfig(),
	})
	if err != nil {
		return err
	}

	report := reporting.NewGenerator(reporting.GeneratorOptions{Metrics: cfg.MetricsOptions()}).FromOutput(out)

	if runJSON {
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		fmt.Print(reporting.RenderText(report))
	}

	if !runNoFiles {
		dir := filepath.Join(cfg.OutputDir, out.Record.RunID)
		paths, err := reporting.WriteRunFiles(dir, report)
		if err != nil {
			return fmt.Errorf("write report files: %w", err)
		}
		logger.Info().Str("dir", dir).Int("files", len(paths)).Msg("report files written")
	}

	if runVerify {
		return verifyRun(cmd, stores, out)
	}
	return nil
}

// verifyRun checks determinism in memory and, for persisted runs, against the stores.
func verifyRun(cmd *cobra.Command, stores *allStores, out *backtest.RunOutput) error {
	ctx := cmd.Context()

	scratch, err := newRunner(cfg, stores, false)
	if err != nil {
		return err
	}
	cfgUsed := cfg.StrategyConfig()
	res, err := verification.CheckDeterminism(ctx, scratch, out.Record.Symbol, out.Prices, cfgUsed)
	if err != nil {
		return fmt.Errorf("determinism check: %w", err)
	}
	printVerification("determinism", res)
	if !res.Match {
		return fmt.Errorf("run %s is not deterministic", out.Record.RunID)
	}

	if !runPersist {
		return nil
	}
	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		RunStore:    stores.runs,
		TradeStore:  stores.trades,
		EquityStore: stores.equity,
		PriceStore:  stores.prices,
		Metrics:     cfg.MetricsOptions(),
	})
	stored, err := verifier.VerifyRun(ctx, out.Record.RunID)
	if err != nil {
		return fmt.Errorf("replay stored run: %w", err)
	}
	printVerification("stored", stored)
	if !stored.Match {
		return fmt.Errorf("stored run %s diverges from replay", out.Record.RunID)
	}
	return nil
}

func printVerification(label string, res *verification.VerificationResult) {
	if res.Match {
		fmt.Printf("Verification (%s): OK\n", label)
		return
	}
	fmt.Printf("Verification (%s): %d divergences\n", label, len(res.Divergences))
	for _, d := range res.Divergences {
		fmt.Printf("  %s: expected %v, got %v\n", d.Field, d.Expected, d.Actual)
	}
}

type jsonTrade struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	Fee         float64 `json:"fee"`
}

type jsonRun struct {
	RunID       string             `json:"run_id"`
	Symbol      string             `json:"symbol"`
	StrategyID  string             `json:"strategy_id"`
	InitialCash float64            `json:"initial_cash"`
	FeePerTrade float64            `json:"fee_per_trade"`
	FromMs      int64              `json:"from_ms"`
	ToMs        int64              `json:"to_ms"`
	Bars        int                `json:"bars"`
	Persisted   bool               `json:"persisted"`
	Metrics     map[string]float64 `json:"metrics"`
	Trades      []jsonTrade        `json:"trades"`
}

func printJSON(out *backtest.RunOutput) error {
	rec := out.Record
	doc := jsonRun{
		RunID:       rec.RunID,
		Symbol:      rec.Symbol,
		StrategyID:  rec.StrategyID,
		InitialCash: rec.InitialCash,
		FeePerTrade: rec.FeePerTrade,
		FromMs:      rec.FromMs,
		ToMs:        rec.ToMs,
		Bars:        rec.BarCount,
		Persisted:   out.Persisted,
		Metrics:     rec.Metrics.Map(),
		Trades:      toJSONTrades(out.Result.Trades),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func toJSONTrades(trades []domain.Trade) []jsonTrade {
	out := make([]jsonTrade, len(trades))
	for i, t := range trades {
		out[i] = jsonTrade{
			TimestampMs: t.TimestampMs,
			Side:        string(t.Side),
			Price:       t.Price,
			Quantity:    t.Quantity,
			Fee:         t.Fee,
		}
	}
	return out
}
