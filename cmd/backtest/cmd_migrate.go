package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signal-backtest-lab/internal/storage/migrations"
	pgstore "signal-backtest-lab/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Migrate applies the embedded SQL migrations: backtest_runs and trades in
PostgreSQL, price_series and equity_curve in ClickHouse. The ClickHouse
database named in the DSN is created if missing. Migrations are idempotent.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Storage.PostgresDSN == "" || cfg.Storage.ClickhouseDSN == "" {
		return fmt.Errorf("migrate requires --postgres-dsn and --clickhouse-dsn")
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}
	logger.Info().Msg("postgres migrations applied")

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info().Msg("clickhouse migrations applied")

	fmt.Println("Migrations applied")
	return nil
}
