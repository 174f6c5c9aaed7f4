package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, symbol, strategy_id, initial_cash, fee_per_trade,
	from_ms, to_ms, bar_count, periods_per_year, risk_free_rate,
	total_return_pct, cagr_pct, max_drawdown_pct, volatility_pct,
	sharpe_ratio, win_rate_pct, trade_count, round_trips, final_value
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("runs_insert", start, err) }()

	query := `INSERT INTO backtest_runs (` + runColumns + `) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14,
		$15, $16, $17, $18, $19
	)`

	m := r.Metrics
	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Symbol, r.StrategyID, r.InitialCash, r.FeePerTrade,
		r.FromMs, r.ToMs, r.BarCount, r.PeriodsPerYear, r.RiskFreeRate,
		m.TotalReturnPct, m.CAGRPct, m.MaxDrawdownPct, m.VolatilityPct,
		m.SharpeRatio, m.WinRatePct, m.TradeCount, m.RoundTrips, m.FinalValue,
	)
	return mapError("insert run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (r *domain.RunRecord, err error) {
	start := time.Now()
	defer func() { observe("runs_by_id", start, err) }()

	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM backtest_runs WHERE run_id = $1`, runID)
	r, err = scanRun(row)
	if err != nil {
		return nil, mapError("get run", err)
	}
	return r, nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by run_id ASC.
func (s *RunStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.RunRecord, error) {
	return s.query(ctx, "runs_by_symbol",
		`SELECT `+runColumns+` FROM backtest_runs WHERE symbol = $1 ORDER BY run_id ASC`, symbol)
}

// GetByStrategy retrieves all runs for a strategy, ordered by run_id ASC.
func (s *RunStore) GetByStrategy(ctx context.Context, strategyID string) ([]*domain.RunRecord, error) {
	return s.query(ctx, "runs_by_strategy",
		`SELECT `+runColumns+` FROM backtest_runs WHERE strategy_id = $1 ORDER BY run_id ASC`, strategyID)
}

func (s *RunStore) query(ctx context.Context, operation, query string, args ...any) (runs []*domain.RunRecord, err error) {
	start := time.Now()
	defer func() { observe(operation, start, err) }()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	m := &r.Metrics
	err := row.Scan(
		&r.RunID, &r.Symbol, &r.StrategyID, &r.InitialCash, &r.FeePerTrade,
		&r.FromMs, &r.ToMs, &r.BarCount, &r.PeriodsPerYear, &r.RiskFreeRate,
		&m.TotalReturnPct, &m.CAGRPct, &m.MaxDrawdownPct, &m.VolatilityPct,
		&m.SharpeRatio, &m.WinRatePct, &m.TradeCount, &m.RoundTrips, &m.FinalValue,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
