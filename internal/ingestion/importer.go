package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/normalization"
	"signal-backtest-lab/internal/observability"
	"signal-backtest-lab/internal/storage"
)

// Importer errors
var (
	ErrUnknownSymbol = errors.New("no source configured for symbol")
)

const defaultBatchSize = 1000

// Importer copies validated price bars from a source into a price store.
type Importer struct {
	source    PriceSource
	store     storage.PriceSeriesStore
	batchSize int
	logger    zerolog.Logger
}

// ImporterOptions contains configuration for creating an Importer.
type ImporterOptions struct {
	Source    PriceSource
	Store     storage.PriceSeriesStore
	BatchSize int             // Default: 1000 points per InsertBulk
	Logger    *zerolog.Logger // nil disables logging
}

// ImportResult summarises one import.
type ImportResult struct {
	Symbol   string
	Fetched  int // bars returned by the source
	Inserted int // new bars written
	Skipped  int // bars already present in the store
}

// NewImporter creates a new importer.
func NewImporter(opts ImporterOptions) *Importer {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Importer{
		source:    opts.Source,
		store:     opts.Store,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "importer").Logger(),
	}
}

// Import fetches bars for symbol, validates them and inserts the ones the
// store does not have yet. Re-importing the same file is a no-op.
func (im *Importer) Import(ctx context.Context, symbol string, from, to int64) (*ImportResult, error) {
	raw, err := im.source.Fetch(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}

	points, err := normalization.PreparePrices(raw)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", symbol, err)
	}

	existing, err := im.store.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load existing %s: %w", symbol, err)
	}
	have := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		have[p.TimestampMs] = struct{}{}
	}

	fresh := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		if _, ok := have[p.TimestampMs]; !ok {
			fresh = append(fresh, p)
		}
	}

	for start := 0; start < len(fresh); start += im.batchSize {
		end := start + im.batchSize
		if end > len(fresh) {
			end = len(fresh)
		}
		if err := im.store.InsertBulk(ctx, fresh[start:end]); err != nil {
			return nil, fmt.Errorf("insert %s batch at %d: %w", symbol, start, err)
		}
	}

	result := &ImportResult{
		Symbol:   symbol,
		Fetched:  len(raw),
		Inserted: len(fresh),
		Skipped:  len(points) - len(fresh),
	}
	observability.RecordImport(symbol, result.Inserted)
	im.logger.Info().
		Str("symbol", symbol).
		Int("fetched", result.Fetched).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Msg("price import complete")

	return result, nil
}
