package postgres

import (
	"context"
	"fmt"
	"time"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds the trade log of a run atomically, numbering rows by position.
// Returns ErrDuplicateKey if the run already has trades.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []domain.Trade) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("trades_insert", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trades (run_id, seq, timestamp_ms, side, price, quantity, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, t := range trades {
		_, err = tx.Exec(ctx, query, runID, i, t.TimestampMs, string(t.Side), t.Price, t.Quantity, t.Fee)
		if err != nil {
			return mapError(fmt.Sprintf("insert trade %d", i), err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves the trade log of a run in execution order.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) (trades []domain.Trade, err error) {
	start := time.Now()
	defer func() { observe("trades_by_run", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT timestamp_ms, side, price, quantity, fee
		FROM trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Trade
		var side string
		if err = rows.Scan(&t.TimestampMs, &side, &t.Price, &t.Quantity, &t.Fee); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}
