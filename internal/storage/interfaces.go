package storage

import (
	"context"

	"signal-backtest-lab/internal/domain"
)

// PriceSeriesStore provides access to price_series storage.
type PriceSeriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetBySymbol retrieves all runs for a symbol, ordered by run_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.RunRecord, error)

	// GetByStrategy retrieves all runs for a strategy, ordered by run_id ASC.
	GetByStrategy(ctx context.Context, strategyID string) ([]*domain.RunRecord, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// InsertBulk adds the trade log of a run atomically.
	// Returns ErrDuplicateKey if the run already has trades.
	InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error

	// GetByRunID retrieves the trade log of a run in execution order.
	GetByRunID(ctx context.Context, runID string) ([]domain.Trade, error)
}

// EquityCurveStore provides access to equity_curve storage.
type EquityCurveStore interface {
	// InsertBulk adds the equity curve of a run atomically.
	// Returns ErrDuplicateKey if the run already has a curve.
	InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error

	// GetByRunID retrieves the equity curve of a run, ordered by timestamp ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}
