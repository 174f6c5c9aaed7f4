package domain

// PricePoint is one bar of a price series.
// Corresponds to price_series table in ClickHouse.
type PricePoint struct {
	Symbol      string  // instrument symbol, e.g. "AAPL"
	TimestampMs int64   // bar timestamp, Unix milliseconds
	Price       float64 // close price, positive and finite
}

// EquityPoint is the portfolio state after one simulated bar.
// Corresponds to equity_curve table in ClickHouse.
type EquityPoint struct {
	TimestampMs int64   // bar timestamp, Unix milliseconds
	Equity      float64 // cash + shares * price
	Cash        float64 // post-step cash
	Shares      int64   // post-step whole shares held
}

// EquityValues extracts the equity column of a curve.
func EquityValues(curve []EquityPoint) []float64 {
	out := make([]float64, len(curve))
	for i, p := range curve {
		out[i] = p.Equity
	}
	return out
}

// PriceValues extracts the price column of a series.
func PriceValues(prices []*PricePoint) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Price
	}
	return out
}
