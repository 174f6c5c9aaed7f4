// Package backtest replays a price/signal pair through a long-only,
// whole-share, single-position portfolio.
package backtest

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"signal-backtest-lab/internal/domain"
)

// ErrInvalidInput is returned when the price and signal series violate the
// simulator's input contract. No portfolio state is touched in that case.
var ErrInvalidInput = errors.New("invalid backtest input")

// Result holds the output of one simulation run.
type Result struct {
	Equity      []domain.EquityPoint // one point per input bar
	Trades      []domain.Trade       // chronological, alternating buy/sell
	FinalCash   float64
	FinalShares int64
}

// FinalValue returns the last equity value, or 0 for an empty run.
func (r *Result) FinalValue() float64 {
	if len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}

// Simulator executes market orders at bar prices.
// It holds only configuration; every Run starts from a fresh portfolio,
// so one Simulator can serve concurrent runs.
type Simulator struct {
	initialCash decimal.Decimal
	fee         decimal.Decimal
}

// NewSimulator creates a simulator with starting cash and a flat fee per trade.
func NewSimulator(initialCash, feePerTrade float64) (*Simulator, error) {
	if !isFinite(initialCash) || initialCash <= 0 {
		return nil, fmt.Errorf("%w: initial cash must be positive, got %v", ErrInvalidInput, initialCash)
	}
	if !isFinite(feePerTrade) || feePerTrade < 0 {
		return nil, fmt.Errorf("%w: fee per trade must be non-negative, got %v", ErrInvalidInput, feePerTrade)
	}
	return &Simulator{
		initialCash: decimal.NewFromFloat(initialCash),
		fee:         decimal.NewFromFloat(feePerTrade),
	}, nil
}

// portfolio is the mutable state of a single run.
type portfolio struct {
	cash   decimal.Decimal
	shares int64
}

// Run replays prices and signals bar by bar.
// Per bar, at most one trade executes: an enter signal while flat buys
// floor(cash/price) shares if that plus the fee is affordable; otherwise an
// exit signal while long sells the whole position. Anything else holds.
// Equity is recorded for every bar.
func (s *Simulator) Run(prices []*domain.PricePoint, signals []*domain.SignalPoint) (*Result, error) {
	if err := validateInputs(prices, signals); err != nil {
		return nil, err
	}

	pf := portfolio{cash: s.initialCash}
	result := &Result{
		Equity: make([]domain.EquityPoint, 0, len(prices)),
		Trades: make([]domain.Trade, 0),
	}
	feeF := s.fee.InexactFloat64()

	for i, bar := range prices {
		price := decimal.NewFromFloat(bar.Price)

		switch sig := signals[i].Value; {
		case sig == domain.SignalEnter && pf.shares == 0:
			qty, _ := pf.cash.QuoRem(price, 0)
			cost := qty.Mul(price).Add(s.fee)
			if qty.IsPositive() && cost.LessThanOrEqual(pf.cash) {
				pf.shares = qty.IntPart()
				pf.cash = pf.cash.Sub(cost)
				result.Trades = append(result.Trades, domain.Trade{
					TimestampMs: bar.TimestampMs,
					Side:        domain.SideBuy,
					Price:       bar.Price,
					Quantity:    pf.shares,
					Fee:         feeF,
				})
			}
		case sig == domain.SignalExit && pf.shares > 0:
			proceeds := decimal.NewFromInt(pf.shares).Mul(price)
			pf.cash = pf.cash.Add(proceeds).Sub(s.fee)
			result.Trades = append(result.Trades, domain.Trade{
				TimestampMs: bar.TimestampMs,
				Side:        domain.SideSell,
				Price:       bar.Price,
				Quantity:    pf.shares,
				Fee:         feeF,
			})
			pf.shares = 0
		}

		equity := pf.cash.Add(decimal.NewFromInt(pf.shares).Mul(price))
		result.Equity = append(result.Equity, domain.EquityPoint{
			TimestampMs: bar.TimestampMs,
			Equity:      equity.InexactFloat64(),
			Cash:        pf.cash.InexactFloat64(),
			Shares:      pf.shares,
		})
	}

	result.FinalCash = pf.cash.InexactFloat64()
	result.FinalShares = pf.shares
	return result, nil
}

// validateInputs checks alignment, ordering and price sanity.
func validateInputs(prices []*domain.PricePoint, signals []*domain.SignalPoint) error {
	if len(prices) != len(signals) {
		return fmt.Errorf("%w: %d prices vs %d signals", ErrInvalidInput, len(prices), len(signals))
	}
	for i := range prices {
		p, sig := prices[i], signals[i]
		if p == nil || sig == nil {
			return fmt.Errorf("%w: nil element at index %d", ErrInvalidInput, i)
		}
		if p.TimestampMs != sig.TimestampMs {
			return fmt.Errorf("%w: timestamp mismatch at index %d: price %d, signal %d",
				ErrInvalidInput, i, p.TimestampMs, sig.TimestampMs)
		}
		if i > 0 && p.TimestampMs <= prices[i-1].TimestampMs {
			return fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrInvalidInput, i)
		}
		if !isFinite(p.Price) || p.Price <= 0 {
			return fmt.Errorf("%w: price must be positive and finite at index %d, got %v", ErrInvalidInput, i, p.Price)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
