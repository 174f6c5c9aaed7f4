package main

import (
	"context"
	"fmt"

	"signal-backtest-lab/internal/backtest"
	"signal-backtest-lab/internal/config"
	"signal-backtest-lab/internal/ingestion"
	"signal-backtest-lab/internal/storage"
	chstore "signal-backtest-lab/internal/storage/clickhouse"
	"signal-backtest-lab/internal/storage/memory"
	pgstore "signal-backtest-lab/internal/storage/postgres"
)

// allStores groups the four stores a backtest touches.
type allStores struct {
	prices storage.PriceSeriesStore
	runs   storage.RunStore
	trades storage.TradeStore
	equity storage.EquityCurveStore
}

// createStores builds memory stores or connects to PostgreSQL (runs, trades)
// and ClickHouse (prices, equity curves). The cleanup func closes connections.
func createStores(ctx context.Context, c *config.Config) (*allStores, func(), error) {
	if c.Storage.Backend == config.StorageMemory {
		return &allStores{
			prices: memory.NewPriceSeriesStore(),
			runs:   memory.NewRunStore(),
			trades: memory.NewTradeStore(),
			equity: memory.NewEquityCurveStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, c.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	chConn, err := chstore.NewConn(ctx, c.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		runs:   pgstore.NewRunStore(pool),
		trades: pgstore.NewTradeStore(pool),
		prices: chstore.NewPriceSeriesStore(chConn),
		equity: chstore.NewEquityCurveStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// newRunner builds a runner over the stores. persist=false keeps results in memory only.
func newRunner(c *config.Config, s *allStores, persist bool) (*backtest.Runner, error) {
	opts := backtest.RunnerOptions{
		PriceStore:  s.prices,
		InitialCash: c.Backtest.InitialCash,
		FeePerTrade: c.Backtest.FeePerTrade,
		Metrics:     c.MetricsOptions(),
		Logger:      &logger,
	}
	if persist {
		opts.RunStore = s.runs
		opts.TradeStore = s.trades
		opts.EquityStore = s.equity
	}
	return backtest.NewRunner(opts)
}

// importCSV loads a CSV file into the price store. Bars already stored are skipped.
func importCSV(ctx context.Context, store storage.PriceSeriesStore, symbol, path string, from, to int64) (*ingestion.ImportResult, error) {
	importer := ingestion.NewImporter(ingestion.ImporterOptions{
		Source: ingestion.NewCSVSource(symbol, path),
		Store:  store,
		Logger: &logger,
	})
	return importer.Import(ctx, symbol, from, to)
}
