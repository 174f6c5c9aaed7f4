package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-backtest-lab/internal/config"
)

func writePriceCSV(t *testing.T, bars int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	day := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		price := 100 + 10*math.Sin(float64(i)/5)
		fmt.Fprintf(&b, "%s,0,0,0,%.4f,0\n", day.AddDate(0, 0, i).Format("2006-01-02"), price)
	}

	path := filepath.Join(t.TempDir(), "spy.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestSymbolFromPath(t *testing.T) {
	assert.Equal(t, "SPY", symbolFromPath("data/spy.csv"))
	assert.Equal(t, "BTC-USD", symbolFromPath("/tmp/BTC-USD.csv"))
	assert.Equal(t, "AAPL", symbolFromPath("AAPL"))
}

func TestRunCommand_WritesReportFiles(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "")
	t.Setenv(config.EnvClickhouseDSN, "")
	t.Setenv(config.EnvLogLevel, "error")

	csvPath := writePriceCSV(t, 80)
	outDir := t.TempDir()

	rootCmd.SetArgs([]string{
		"run",
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--use-memory",
		"--csv", csvPath,
		"--short", "3",
		"--long", "8",
		"--output-dir", outDir,
	})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "SPY", cfg.Data.Symbol)
	assert.Equal(t, 3, cfg.Strategy.ShortWindow)
	assert.Equal(t, 8, cfg.Strategy.LongWindow)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "expected one run directory")

	runDir := filepath.Join(outDir, entries[0].Name())
	for _, name := range []string{"report.md", "metrics.csv", "trades.csv", "equity_curve.csv", "drawdown.csv", "price_sma.csv"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		assert.NoError(t, err, name)
	}
}
