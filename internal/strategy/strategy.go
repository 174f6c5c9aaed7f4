package strategy

import (
	"context"

	"signal-backtest-lab/internal/domain"
)

// Generator turns a price series into an aligned signal series.
type Generator interface {
	// ID returns strategy identifier (includes parameters).
	ID() string

	// RequiredIndicators lists indicator names the generator computes.
	RequiredIndicators() []string

	// GenerateSignals returns one signal per price bar, with the same timestamps.
	GenerateSignals(ctx context.Context, prices []*domain.PricePoint) (*Output, error)
}

// Output holds generated signals and the indicator series behind them.
type Output struct {
	Signals    []*domain.SignalPoint
	Indicators map[string][]float64 // keyed by e.g. "SMA_50", aligned with prices
}

// SignalValues extracts the signal column.
func (o *Output) SignalValues() []domain.Signal {
	out := make([]domain.Signal, len(o.Signals))
	for i, s := range o.Signals {
		out[i] = s.Value
	}
	return out
}
