// Package config loads backtest settings from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"signal-backtest-lab/internal/domain"
	"signal-backtest-lab/internal/metrics"
)

// Environment overrides
const (
	EnvPostgresDSN   = "BACKTEST_POSTGRES_DSN"
	EnvClickhouseDSN = "BACKTEST_CLICKHOUSE_DSN"
	EnvLogLevel      = "BACKTEST_LOG_LEVEL"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageDatabase = "database"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Backtest struct {
		InitialCash float64 `yaml:"initial_cash"`
		FeePerTrade float64 `yaml:"fee_per_trade"`
	} `yaml:"backtest"`
	Metrics struct {
		PeriodsPerYear int     `yaml:"periods_per_year"`
		RiskFreeRate   float64 `yaml:"risk_free_rate"`
	} `yaml:"metrics"`
	Strategy struct {
		Type        string `yaml:"type"`
		ShortWindow int    `yaml:"short_window"`
		LongWindow  int    `yaml:"long_window"`
	} `yaml:"strategy"`
	Sweep struct {
		ShortWindows []int `yaml:"short_windows"`
		LongWindows  []int `yaml:"long_windows"`
		Concurrency  int   `yaml:"concurrency"`
	} `yaml:"sweep"`
	Data struct {
		Symbol  string `yaml:"symbol"`
		CSVPath string `yaml:"csv_path"`
		From    string `yaml:"from"` // YYYY-MM-DD, inclusive
		To      string `yaml:"to"`
	} `yaml:"data"`
	Storage struct {
		Backend       string `yaml:"backend"` // memory | database
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Trace struct {
		Enabled bool `yaml:"enabled"`
		Pretty  bool `yaml:"pretty"`
	} `yaml:"trace"`
	OutputDir   string `yaml:"output_dir"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var c Config
	c.Backtest.InitialCash = 10000
	c.Backtest.FeePerTrade = 0
	c.Metrics.PeriodsPerYear = metrics.DefaultPeriodsPerYear
	c.Metrics.RiskFreeRate = metrics.DefaultRiskFreeRate
	c.Strategy.Type = domain.StrategyTypeMACrossover
	c.Strategy.ShortWindow = 50
	c.Strategy.LongWindow = 200
	c.Sweep.ShortWindows = []int{10, 20, 50}
	c.Sweep.LongWindows = []int{100, 150, 200}
	c.Sweep.Concurrency = 4
	c.Storage.Backend = StorageMemory
	c.Logging.Level = "info"
	c.OutputDir = "results"
	return &c
}

// Load reads a YAML file over the defaults, then applies environment overrides.
// An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.ApplyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides DSNs and log level from the environment.
// A DSN in the environment switches the backend to database.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvClickhouseDSN)); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if c.Storage.PostgresDSN != "" && c.Storage.ClickhouseDSN != "" && c.Storage.Backend == "" {
		c.Storage.Backend = StorageDatabase
	}
}

func (c *Config) Validate() error {
	if !finite(c.Backtest.InitialCash) || c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("%w: backtest.initial_cash must be positive, got %v", ErrInvalidConfig, c.Backtest.InitialCash)
	}
	if !finite(c.Backtest.FeePerTrade) || c.Backtest.FeePerTrade < 0 {
		return fmt.Errorf("%w: backtest.fee_per_trade must be non-negative, got %v", ErrInvalidConfig, c.Backtest.FeePerTrade)
	}
	if c.Metrics.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: metrics.periods_per_year must be positive, got %d", ErrInvalidConfig, c.Metrics.PeriodsPerYear)
	}
	if !finite(c.Metrics.RiskFreeRate) {
		return fmt.Errorf("%w: metrics.risk_free_rate must be finite", ErrInvalidConfig)
	}
	switch c.Strategy.Type {
	case domain.StrategyTypeMACrossover, domain.StrategyTypeMACrossoverEvent:
	default:
		return fmt.Errorf("%w: strategy.type must be %s or %s, got '%s'", ErrInvalidConfig,
			domain.StrategyTypeMACrossover, domain.StrategyTypeMACrossoverEvent, c.Strategy.Type)
	}
	if c.Strategy.ShortWindow <= 0 || c.Strategy.ShortWindow >= c.Strategy.LongWindow {
		return fmt.Errorf("%w: strategy windows must satisfy 0 < short < long, got %d/%d", ErrInvalidConfig,
			c.Strategy.ShortWindow, c.Strategy.LongWindow)
	}
	if c.Sweep.Concurrency < 0 {
		return fmt.Errorf("%w: sweep.concurrency must be non-negative", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageDatabase:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: database backend requires postgres_dsn and clickhouse_dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.backend must be '%s' or '%s', got '%s'", ErrInvalidConfig,
			StorageMemory, StorageDatabase, c.Storage.Backend)
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	return nil
}

// MetricsOptions converts the metrics section.
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		PeriodsPerYear: c.Metrics.PeriodsPerYear,
		RiskFreeRate:   c.Metrics.RiskFreeRate,
	}
}

// StrategyConfig converts the strategy section.
func (c *Config) StrategyConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		StrategyType: c.Strategy.Type,
		ShortWindow:  c.Strategy.ShortWindow,
		LongWindow:   c.Strategy.LongWindow,
	}
}

// Range returns the data window in Unix ms. Both zero means the whole series.
// An open end runs to the latest representable bar.
func (c *Config) Range() (fromMs, toMs int64, err error) {
	if c.Data.From == "" && c.Data.To == "" {
		return 0, 0, nil
	}
	toMs = math.MaxInt64
	if c.Data.From != "" {
		if fromMs, err = parseDate(c.Data.From); err != nil {
			return 0, 0, fmt.Errorf("%w: data.from: %v", ErrInvalidConfig, err)
		}
	}
	if c.Data.To != "" {
		if toMs, err = parseDate(c.Data.To); err != nil {
			return 0, 0, fmt.Errorf("%w: data.to: %v", ErrInvalidConfig, err)
		}
		// inclusive end date
		toMs += 86_400_000 - 1
	}
	if fromMs > toMs {
		return 0, 0, fmt.Errorf("%w: data.from after data.to", ErrInvalidConfig)
	}
	return fromMs, toMs, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
