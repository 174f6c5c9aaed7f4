package strategy

import (
	"context"
	"fmt"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/indicators"
)

// MACrossoverStrategy holds a state signal: +1 while the short SMA is above
// the long SMA, -1 while below, 0 when equal or during warm-up.
type MACrossoverStrategy struct {
	ShortWindow int
	LongWindow  int
}

// NewMACrossoverStrategy creates a new MACrossoverStrategy.
func NewMACrossoverStrategy(shortWindow, longWindow int) *MACrossoverStrategy {
	return &MACrossoverStrategy{ShortWindow: shortWindow, LongWindow: longWindow}
}

// ID returns the strategy identifier including parameters.
func (s *MACrossoverStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%d", domain.StrategyTypeMACrossover, s.ShortWindow, s.LongWindow)
}

// RequiredIndicators returns the indicators computed by the strategy.
func (s *MACrossoverStrategy) RequiredIndicators() []string {
	return []string{indicators.NameSMA}
}

// GenerateSignals computes both SMAs and compares them bar by bar.
func (s *MACrossoverStrategy) GenerateSignals(ctx context.Context, prices []*domain.PricePoint) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	short, long, err := movingAverages(prices, s.ShortWindow, s.LongWindow)
	if err != nil {
		return nil, err
	}

	signals := newSignals(prices)
	for i := range signals {
		switch {
		case short[i] > long[i]:
			signals[i].Value = domain.SignalEnter
		case short[i] < long[i]:
			signals[i].Value = domain.SignalExit
		}
	}

	return &Output{
		Signals: signals,
		Indicators: map[string][]float64{
			IndicatorKey(indicators.NameSMA, s.ShortWindow): short,
			IndicatorKey(indicators.NameSMA, s.LongWindow):  long,
		},
	}, nil
}

// MACrossoverEventStrategy signals only on the crossing bar: +1 when the
// short SMA moves above the long SMA (golden cross), -1 when it moves below
// (death cross).
type MACrossoverEventStrategy struct {
	ShortWindow int
	LongWindow  int
}

// NewMACrossoverEventStrategy creates a new MACrossoverEventStrategy.
func NewMACrossoverEventStrategy(shortWindow, longWindow int) *MACrossoverEventStrategy {
	return &MACrossoverEventStrategy{ShortWindow: shortWindow, LongWindow: longWindow}
}

// ID returns the strategy identifier including parameters.
func (s *MACrossoverEventStrategy) ID() string {
	return fmt.Sprintf("%s_%d_%d", domain.StrategyTypeMACrossoverEvent, s.ShortWindow, s.LongWindow)
}

// RequiredIndicators returns the indicators computed by the strategy.
func (s *MACrossoverEventStrategy) RequiredIndicators() []string {
	return []string{indicators.NameSMA}
}

// GenerateSignals compares each bar with the previous one.
// The first bar, and any bar whose previous averages are undefined, holds.
func (s *MACrossoverEventStrategy) GenerateSignals(ctx context.Context, prices []*domain.PricePoint) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	short, long, err := movingAverages(prices, s.ShortWindow, s.LongWindow)
	if err != nil {
		return nil, err
	}

	signals := newSignals(prices)
	for i := 1; i < len(signals); i++ {
		if !valid(short[i-1], long[i-1]) {
			continue
		}
		switch {
		case short[i] > long[i] && short[i-1] <= long[i-1]:
			signals[i].Value = domain.SignalEnter
		case short[i] < long[i] && short[i-1] >= long[i-1]:
			signals[i].Value = domain.SignalExit
		}
	}

	return &Output{
		Signals: signals,
		Indicators: map[string][]float64{
			IndicatorKey(indicators.NameSMA, s.ShortWindow): short,
			IndicatorKey(indicators.NameSMA, s.LongWindow):  long,
		},
	}, nil
}

// Ensure strategies implement Generator
var (
	_ Generator = (*MACrossoverStrategy)(nil)
	_ Generator = (*MACrossoverEventStrategy)(nil)
)
