package clickhouse

import (
	"context"
	"fmt"
	"time"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (symbol, timestamp_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked before the batch is sent.
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) (err error) {
	if len(points) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("price_series_insert", start, err) }()

	type span struct{ min, max int64 }
	spans := make(map[string]*span)
	seen := make(map[string]map[int64]struct{})
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		ts, ok := seen[p.Symbol]
		if !ok {
			ts = make(map[int64]struct{})
			seen[p.Symbol] = ts
			spans[p.Symbol] = &span{min: p.TimestampMs, max: p.TimestampMs}
		}
		if _, dup := ts[p.TimestampMs]; dup {
			return storage.ErrDuplicateKey
		}
		ts[p.TimestampMs] = struct{}{}
		sp := spans[p.Symbol]
		sp.min = min(sp.min, p.TimestampMs)
		sp.max = max(sp.max, p.TimestampMs)
	}

	for symbol, sp := range spans {
		existing, err := s.timestamps(ctx, symbol, sp.min, sp.max)
		if err != nil {
			return fmt.Errorf("check existing: %w", err)
		}
		for _, tsMs := range existing {
			if _, dup := seen[symbol][tsMs]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO price_series (symbol, timestamp_ms, price)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err = batch.Append(p.Symbol, p.TimestampMs, p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all points for a symbol, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetBySymbol(ctx context.Context, symbol string) (points []*domain.PricePoint, err error) {
	start := time.Now()
	defer func() { observe("price_series_by_symbol", start, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT symbol, timestamp_ms, price
		FROM price_series
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves points for a symbol within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, symbol string, startMs, endMs int64) (points []*domain.PricePoint, err error) {
	start := time.Now()
	defer func() { observe("price_series_by_range", start, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT symbol, timestamp_ms, price
		FROM price_series
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`, symbol, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// timestamps lists stored bar timestamps for a symbol within [startMs, endMs].
func (s *PriceSeriesStore) timestamps(ctx context.Context, symbol string, startMs, endMs int64) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT timestamp_ms FROM price_series
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`, symbol, startMs, endMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Symbol, &p.TimestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return points, nil
}
