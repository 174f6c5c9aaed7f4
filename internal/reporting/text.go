package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderText renders the console result block of a run.
func RenderText(r *Report) string {
	var sb strings.Builder
	run := r.Run
	m := run.Metrics

	sb.WriteString(fmt.Sprintf("Backtesting %s from %s to %s (%d bars)\n",
		run.Symbol, formatTimestamp(run.FromMs), formatTimestamp(run.ToMs), run.BarCount))
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", run.StrategyID))
	sb.WriteString(fmt.Sprintf("Run ID: %s\n", run.RunID))

	sb.WriteString("\n=== BACKTEST RESULTS ===\n")
	sb.WriteString(fmt.Sprintf("Final Value: $%.2f\n", m.FinalValue))
	sb.WriteString(fmt.Sprintf("Total Return: %.2f%%\n", m.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("CAGR: %.2f%%\n", m.CAGRPct))
	sb.WriteString(fmt.Sprintf("Max Drawdown: %.2f%%\n", m.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("Volatility: %.2f%%\n", m.VolatilityPct))
	sb.WriteString(fmt.Sprintf("Sharpe Ratio: %.4f\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("Win Rate: %.2f%%\n", m.WinRatePct))
	sb.WriteString(fmt.Sprintf("Number of Trades: %d\n", m.TradeCount))

	return sb.String()
}

// formatTimestamp renders a bar timestamp as a UTC date, with the time of day
// when the bar is not at midnight.
func formatTimestamp(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
