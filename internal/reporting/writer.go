package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signal-backtest-lab/internal/observability"
	"signal-backtest-lab/internal/orchestrator"
)

// Output file names
const (
	FileReport     = "report.md"
	FileMetrics    = "metrics.csv"
	FileTrades     = "trades.csv"
	FileRoundTrips = "round_trips.csv"
	FileEquity     = "equity_curve.csv"
	FileDrawdown   = "drawdown.csv"
	FileOverlay    = "price_sma.csv"
	FileSweepCSV   = "sweep_results.csv"
	FileSweepMD    = "sweep.md"
)

// WriteRunFiles writes the report and chart data of one run into dir.
// The overlay file is skipped when the report carries no prices.
// Returns written paths in write order.
func WriteRunFiles(dir string, r *Report) ([]string, error) {
	files := []struct {
		name    string
		content string
	}{
		{FileReport, RenderMarkdown(r)},
		{FileMetrics, RenderMetricsCSV(r.Run.Metrics)},
		{FileTrades, RenderTradesCSV(r.Trades)},
		{FileRoundTrips, RenderRoundTripsCSV(r.RoundTrips())},
		{FileEquity, RenderEquityCSV(r.Equity)},
		{FileDrawdown, RenderDrawdownCSV(r.Equity, r.Drawdown)},
	}
	if len(r.Prices) > 0 {
		files = append(files, struct {
			name    string
			content string
		}{FileOverlay, RenderOverlayCSV(r)})
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	observability.RecordReport()
	return paths, nil
}

// WriteSweepFiles writes the sweep table and summary into dir.
func WriteSweepFiles(dir string, res *orchestrator.SweepResult, generatedAt time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	csvPath := filepath.Join(dir, FileSweepCSV)
	if err := os.WriteFile(csvPath, []byte(RenderSweepCSV(res)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", FileSweepCSV, err)
	}

	mdPath := filepath.Join(dir, FileSweepMD)
	if err := os.WriteFile(mdPath, []byte(RenderSweepMarkdown(res, generatedAt)), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", FileSweepMD, err)
	}

	observability.RecordReport()
	return []string{csvPath, mdPath}, nil
}
