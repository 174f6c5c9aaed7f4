package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-backtest-lab/internal/config"
	"signal-backtest-lab/internal/logging"
	"signal-backtest-lab/internal/observability"
	"signal-backtest-lab/internal/trace"
)

// Global flags shared by all subcommands.
var (
	configPath    string
	envFile       string
	logLevel      string
	logPretty     bool
	traceEnabled  bool
	metricsAddr   string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	outputDir     string
)

// Populated by loadApp before any subcommand runs.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Moving-average crossover backtester",
	Long: `Backtest runs long-only moving-average crossover strategies over daily
price series, computes performance metrics and writes report files.

Prices come from a CSV file (--csv) or from the configured price store.
With --use-memory (default when no DSNs are configured) nothing outlives
the process; with PostgreSQL and ClickHouse DSNs runs, trades, equity
curves and prices are persisted.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return trace.Shutdown(ctx)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&envFile, "env-file", ".env", "Path to .env file (ignored if missing)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&logPretty, "pretty", false, "Human-readable console logs")
	pf.BoolVar(&traceEnabled, "trace", false, "Print OpenTelemetry spans to stderr")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	pf.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	pf.StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string")
	pf.BoolVar(&useMemory, "use-memory", false, "Use in-memory storage")
	pf.StringVar(&outputDir, "output-dir", "", "Directory for report files")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadApp resolves configuration (file, .env, environment, then flags)
// and starts logging, tracing and the metrics endpoint.
func loadApp(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	logger = logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	if err := trace.Init(trace.Options{Enabled: cfg.Trace.Enabled, Pretty: cfg.Trace.Pretty}); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cmd.Context(), cfg.MetricsAddr)
	}
	return nil
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if flags.Changed("pretty") {
		c.Logging.Pretty = logPretty
	}
	if flags.Changed("trace") {
		c.Trace.Enabled = traceEnabled
	}
	if flags.Changed("metrics-addr") {
		c.MetricsAddr = metricsAddr
	}
	if flags.Changed("postgres-dsn") {
		c.Storage.PostgresDSN = postgresDSN
	}
	if flags.Changed("clickhouse-dsn") {
		c.Storage.ClickhouseDSN = clickhouseDSN
	}
	if flags.Changed("output-dir") {
		c.OutputDir = outputDir
	}

	switch {
	case flags.Changed("use-memory") && useMemory:
		c.Storage.Backend = config.StorageMemory
	case flags.Changed("postgres-dsn") || flags.Changed("clickhouse-dsn"):
		c.Storage.Backend = config.StorageDatabase
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}
