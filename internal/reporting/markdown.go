package reporting

import (
	"fmt"
	"strings"
	"time"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/orchestrator"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	run := r.Run
	m := run.Metrics

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", run.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | `%s` |\n", run.RunID))
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", run.StrategyID))
	sb.WriteString(fmt.Sprintf("| Period | %s to %s |\n", formatTimestamp(run.FromMs), formatTimestamp(run.ToMs)))
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", run.BarCount))
	sb.WriteString(fmt.Sprintf("| Initial Cash | $%.2f |\n", run.InitialCash))
	sb.WriteString(fmt.Sprintf("| Fee per Trade | $%.2f |\n", run.FeePerTrade))
	sb.WriteString("\n")

	// Metrics
	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Final Value | $%.2f |\n", m.FinalValue))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", m.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| CAGR | %.2f%% |\n", m.CAGRPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", m.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Volatility | %.2f%% |\n", m.VolatilityPct))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", m.WinRatePct))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", m.TradeCount))
	sb.WriteString(fmt.Sprintf("| Round Trips | %d |\n", m.RoundTrips))
	sb.WriteString("\n")

	// Round trips
	sb.WriteString("## Round Trips\n\n")
	if trips := r.RoundTrips(); len(trips) > 0 {
		sb.WriteString("| Entry | Exit | Entry Price | Exit Price | Qty | PnL | Return% |\n")
		sb.WriteString("|-------|------|-------------|------------|-----|-----|---------|\n")
		for _, rt := range trips {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %d | %.2f | %.2f |\n",
				formatTimestamp(rt.EntryMs), formatTimestamp(rt.ExitMs),
				rt.EntryPrice, rt.ExitPrice, rt.Quantity, rt.PnL, rt.ReturnPct))
		}
	} else {
		sb.WriteString("No completed round trips.\n")
	}
	sb.WriteString("\n")

	if n := len(r.Trades); n > 0 && r.Trades[n-1].Side == domain.SideBuy {
		last := r.Trades[n-1]
		sb.WriteString(fmt.Sprintf("Open position: %d shares bought at %.2f on %s.\n\n",
			last.Quantity, last.Price, formatTimestamp(last.TimestampMs)))
	}

	return sb.String()
}

// RenderSweepMarkdown renders sweep results ranked by Sharpe ratio, followed by failures.
func RenderSweepMarkdown(res *orchestrator.SweepResult, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Parameter Sweep: %s\n\n", res.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Bars: %d | Runs: %d | Completed: %d | Failed: %d\n\n",
		res.Bars, len(res.Rows), res.Completed, res.Failed))

	sb.WriteString("## Ranking\n\n")
	ranked := res.Ranked()
	if len(ranked) > 0 {
		sb.WriteString("| # | Strategy | Final Value | Return% | CAGR% | MaxDD% | Sharpe | WinRate% | Trades |\n")
		sb.WriteString("|---|----------|-------------|---------|-------|--------|--------|----------|--------|\n")
		for i, row := range ranked {
			m := row.Record.Metrics
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.2f | %.2f | %.2f | %.4f | %.2f | %d |\n",
				i+1, row.Record.StrategyID, m.FinalValue, m.TotalReturnPct, m.CAGRPct,
				m.MaxDrawdownPct, m.SharpeRatio, m.WinRatePct, m.TradeCount))
		}
	} else {
		sb.WriteString("No successful runs.\n")
	}
	sb.WriteString("\n")

	if res.Failed > 0 {
		sb.WriteString("## Failures\n\n")
		for _, row := range res.Rows {
			if row.Err != nil {
				sb.WriteString(fmt.Sprintf("- short=%d long=%d: %v\n", row.Config.ShortWindow, row.Config.LongWindow, row.Err))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
