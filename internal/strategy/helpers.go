package strategy

import (
	"fmt"
	"math"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/indicators"
)

// IndicatorKey names an indicator series with its window, e.g. "SMA_50".
func IndicatorKey(name string, window int) string {
	return fmt.Sprintf("%s_%d", name, window)
}

// validatePrices rejects nil bars.
func validatePrices(prices []*domain.PricePoint) error {
	for i, p := range prices {
		if p == nil {
			return fmt.Errorf("%w: nil price at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// movingAverages computes the short and long SMA of the price column.
func movingAverages(prices []*domain.PricePoint, shortWindow, longWindow int) (short, long []float64, err error) {
	values := domain.PriceValues(prices)
	if short, err = indicators.SMA(values, shortWindow); err != nil {
		return nil, nil, err
	}
	if long, err = indicators.SMA(values, longWindow); err != nil {
		return nil, nil, err
	}
	return short, long, nil
}

// newSignals allocates a hold signal per bar.
func newSignals(prices []*domain.PricePoint) []*domain.SignalPoint {
	out := make([]*domain.SignalPoint, len(prices))
	for i, p := range prices {
		out[i] = &domain.SignalPoint{TimestampMs: p.TimestampMs, Value: domain.SignalHold}
	}
	return out
}

// valid reports whether both averages are defined at a bar.
func valid(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b)
}
