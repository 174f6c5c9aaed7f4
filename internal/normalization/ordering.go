package normalization

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"signal-backtest-lab/internal/domain"
)

// Validation errors
var (
	ErrDuplicateTimestamp = errors.New("duplicate timestamp in price series")
	ErrNonPositivePrice   = errors.New("price must be positive and finite")
)

// SortPrices orders points by (timestamp_ms ASC, symbol ASC).
func SortPrices(points []*domain.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return comparePrices(points[i], points[j]) < 0
	})
}

// comparePrices returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func comparePrices(a, b *domain.PricePoint) int {
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	return 0
}

// PreparePrices returns a sorted copy of a single-symbol series, rejecting
// nil points, duplicate timestamps and non-positive or non-finite prices.
// The result satisfies the simulator's strictly increasing timestamp contract.
func PreparePrices(points []*domain.PricePoint) ([]*domain.PricePoint, error) {
	out := make([]*domain.PricePoint, 0, len(points))
	for i, p := range points {
		if p == nil {
			return nil, fmt.Errorf("%w: nil point at index %d", ErrNonPositivePrice, i)
		}
		if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return nil, fmt.Errorf("%w: %v at %d", ErrNonPositivePrice, p.Price, p.TimestampMs)
		}
		pointCopy := *p
		out = append(out, &pointCopy)
	}

	SortPrices(out)

	for i := 1; i < len(out); i++ {
		if out[i].TimestampMs == out[i-1].TimestampMs {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTimestamp, out[i].TimestampMs)
		}
	}
	return out, nil
}
