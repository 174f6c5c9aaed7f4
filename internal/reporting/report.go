package reporting

import (
	"time"

	"signal-backtest-lab/internal/domain"
)

// Report is everything rendered for one backtest run.
type Report struct {
	GeneratedAt time.Time

	Run *domain.RunRecord

	// Simulator output
	Trades []domain.Trade
	Equity []domain.EquityPoint

	// Drawdown in percent per equity bar, aligned with Equity
	Drawdown []float64

	// Chart overlay data; empty when the price series was not available
	Prices     []*domain.PricePoint
	Signals    []*domain.SignalPoint
	Indicators map[string][]float64
}

// RoundTripRow pairs a buy with the sell that closed it.
type RoundTripRow struct {
	EntryMs    int64
	ExitMs     int64
	EntryPrice float64
	ExitPrice  float64
	Quantity   int64
	PnL        float64 // proceeds minus cost, fees included
	ReturnPct  float64
}

// RoundTrips pairs consecutive buy -> sell trades. An open final buy is omitted.
func (r *Report) RoundTrips() []RoundTripRow {
	var rows []RoundTripRow
	for i := 0; i+1 < len(r.Trades); i++ {
		buy, sell := r.Trades[i], r.Trades[i+1]
		if buy.Side != domain.SideBuy || sell.Side != domain.SideSell {
			continue
		}
		cost := buy.Notional() + buy.Fee
		pnl := sell.Notional() - sell.Fee - cost
		row := RoundTripRow{
			EntryMs:    buy.TimestampMs,
			ExitMs:     sell.TimestampMs,
			EntryPrice: buy.Price,
			ExitPrice:  sell.Price,
			Quantity:   buy.Quantity,
			PnL:        pnl,
		}
		if cost > 0 {
			row.ReturnPct = pnl / cost * 100
		}
		rows = append(rows, row)
		i++
	}
	return rows
}

// IndicatorKeys returns the overlay series names in sorted order.
func (r *Report) IndicatorKeys() []string {
	keys := make([]string, 0, len(r.Indicators))
	for k := range r.Indicators {
		keys = append(keys, k)
	}
	sortIndicatorKeys(keys)
	return keys
}
