package ingestion

import (
	"context"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/normalization"
)

// PriceSource provides raw price bars from external sources.
type PriceSource interface {
	// Fetch returns bars for a symbol within [from, to] (inclusive); to == 0 means no upper bound.
	// Bars may be unordered; the Importer enforces ordering and validation.
	Fetch(ctx context.Context, symbol string, from, to int64) ([]*domain.PricePoint, error)
}

// CSVSource reads bars from one CSV file per symbol.
type CSVSource struct {
	// Paths maps symbol to CSV file path.
	Paths map[string]string
}

// NewCSVSource creates a CSV source for a single symbol.
func NewCSVSource(symbol, path string) *CSVSource {
	return &CSVSource{Paths: map[string]string{symbol: path}}
}

// Fetch loads the symbol's file and filters it to the requested range.
func (s *CSVSource) Fetch(ctx context.Context, symbol string, from, to int64) ([]*domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.Paths[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}

	points, err := normalization.LoadCSVFile(path, symbol)
	if err != nil {
		return nil, err
	}
	return filterRange(points, from, to), nil
}

func filterRange(points []*domain.PricePoint, from, to int64) []*domain.PricePoint {
	out := points[:0:0]
	for _, p := range points {
		if p.TimestampMs < from {
			continue
		}
		if to != 0 && p.TimestampMs > to {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Ensure CSVSource implements PriceSource
var _ PriceSource = (*CSVSource)(nil)
