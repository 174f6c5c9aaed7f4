package clickhouse

import (
	"context"
	"fmt"
	"time"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk writes the whole curve of a run in one batch.
// Returns ErrDuplicateKey if the run already has a curve or the batch repeats a timestamp.
func (s *EquityCurveStore) InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) (err error) {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("equity_curve_insert", start, err) }()

	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, dup := seen[p.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		seen[p.TimestampMs] = struct{}{}
	}

	var count uint64
	if err = s.conn.QueryRow(ctx, `SELECT count(*) FROM equity_curve WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO equity_curve (run_id, timestamp_ms, equity, cash, shares)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err = batch.Append(runID, p.TimestampMs, p.Equity, p.Cash, p.Shares); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves the curve of a run, ordered by timestamp ASC.
func (s *EquityCurveStore) GetByRunID(ctx context.Context, runID string) (curve []domain.EquityPoint, err error) {
	start := time.Now()
	defer func() { observe("equity_curve_by_run", start, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms, equity, cash, shares
		FROM equity_curve
		WHERE run_id = ?
		ORDER BY timestamp_ms ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.EquityPoint
		if err = rows.Scan(&p.TimestampMs, &p.Equity, &p.Cash, &p.Shares); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		curve = append(curve, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}
	return curve, nil
}
