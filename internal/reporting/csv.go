package reporting

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/orchestrator"
)

// RenderTradesCSV renders the trade log.
func RenderTradesCSV(trades []domain.Trade) string {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []string{
			strconv.FormatInt(t.TimestampMs, 10),
			formatTimestamp(t.TimestampMs),
			string(t.Side),
			formatFloat(t.Price),
			strconv.FormatInt(t.Quantity, 10),
			formatFloat(t.Fee),
			formatFloat(t.Notional()),
		})
	}
	return renderCSV([]string{"timestamp_ms", "date", "side", "price", "quantity", "fee", "notional"}, rows)
}

// RenderEquityCSV renders the equity curve.
func RenderEquityCSV(curve []domain.EquityPoint) string {
	rows := make([][]string, 0, len(curve))
	for _, p := range curve {
		rows = append(rows, []string{
			strconv.FormatInt(p.TimestampMs, 10),
			formatTimestamp(p.TimestampMs),
			formatFloat(p.Equity),
			formatFloat(p.Cash),
			strconv.FormatInt(p.Shares, 10),
		})
	}
	return renderCSV([]string{"timestamp_ms", "date", "equity", "cash", "shares"}, rows)
}

// RenderDrawdownCSV renders the drawdown series aligned with the equity curve.
func RenderDrawdownCSV(curve []domain.EquityPoint, drawdown []float64) string {
	rows := make([][]string, 0, len(curve))
	for i, p := range curve {
		dd := 0.0
		if i < len(drawdown) {
			dd = drawdown[i]
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.TimestampMs, 10),
			formatTimestamp(p.TimestampMs),
			formatFloat(dd),
		})
	}
	return renderCSV([]string{"timestamp_ms", "date", "drawdown_pct"}, rows)
}

// RenderOverlayCSV renders price, indicator and signal columns per bar.
// Indicator warm-up bars are left empty.
func RenderOverlayCSV(r *Report) string {
	keys := r.IndicatorKeys()
	header := append([]string{"timestamp_ms", "date", "price"}, keys...)
	header = append(header, "signal")

	rows := make([][]string, 0, len(r.Prices))
	for i, p := range r.Prices {
		row := []string{
			strconv.FormatInt(p.TimestampMs, 10),
			formatTimestamp(p.TimestampMs),
			formatFloat(p.Price),
		}
		for _, k := range keys {
			series := r.Indicators[k]
			v := math.NaN()
			if i < len(series) {
				v = series[i]
			}
			row = append(row, formatOptional(v))
		}
		sig := ""
		if i < len(r.Signals) && r.Signals[i] != nil {
			sig = strconv.Itoa(int(r.Signals[i].Value))
		}
		rows = append(rows, append(row, sig))
	}
	return renderCSV(header, rows)
}

// RenderMetricsCSV renders the snapshot as metric,value rows in report order.
func RenderMetricsCSV(m domain.MetricsSnapshot) string {
	values := m.Map()
	rows := make([][]string, 0, len(domain.MetricKeys))
	for _, k := range domain.MetricKeys {
		rows = append(rows, []string{k, formatFloat(values[k])})
	}
	return renderCSV([]string{"metric", "value"}, rows)
}

// RenderRoundTripsCSV renders closed buy -> sell pairs.
func RenderRoundTripsCSV(rows []RoundTripRow) string {
	out := make([][]string, 0, len(rows))
	for _, rt := range rows {
		out = append(out, []string{
			formatTimestamp(rt.EntryMs),
			formatTimestamp(rt.ExitMs),
			formatFloat(rt.EntryPrice),
			formatFloat(rt.ExitPrice),
			strconv.FormatInt(rt.Quantity, 10),
			formatFloat(rt.PnL),
			formatFloat(rt.ReturnPct),
		})
	}
	return renderCSV([]string{"entry_date", "exit_date", "entry_price", "exit_price", "quantity", "pnl", "return_pct"}, out)
}

// RenderSweepCSV renders one row per grid cell in grid order.
func RenderSweepCSV(res *orchestrator.SweepResult) string {
	header := []string{"short_window", "long_window", "strategy_id", "run_id"}
	header = append(header, domain.MetricKeys...)
	header = append(header, "error")

	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		line := []string{
			strconv.Itoa(row.Config.ShortWindow),
			strconv.Itoa(row.Config.LongWindow),
		}
		if row.Err != nil || row.Record == nil {
			line = append(line, "", "")
			for range domain.MetricKeys {
				line = append(line, "")
			}
			msg := ""
			if row.Err != nil {
				msg = row.Err.Error()
			}
			rows = append(rows, append(line, msg))
			continue
		}
		line = append(line, row.Record.StrategyID, row.Record.RunID)
		values := row.Record.Metrics.Map()
		for _, k := range domain.MetricKeys {
			line = append(line, formatFloat(values[k]))
		}
		rows = append(rows, append(line, ""))
	}
	return renderCSV(header, rows)
}

func renderCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// strings.Builder writes cannot fail
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return formatFloat(v)
}
