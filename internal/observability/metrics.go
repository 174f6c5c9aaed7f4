// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backtest metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	BarsSimulated  prometheus.Counter
	TradesExecuted *prometheus.CounterVec
	LastFinalValue *prometheus.GaugeVec

	// Sweep metrics
	SweepRunsScheduled prometheus.Counter
	SweepDuration      prometheus.Histogram

	// Ingestion metrics
	PricePointsImported *prometheus.CounterVec

	// Report metrics
	ReportsGenerated prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "signal_backtest_lab"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy type and status",
		}, []string{"strategy_type", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"strategy_type"}),
		BarsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_simulated_total",
			Help:      "Total number of price bars replayed through the simulator",
		}),
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_executed_total",
			Help:      "Total number of simulated trades by side",
		}, []string{"side"}),
		LastFinalValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "last_final_value",
			Help:      "Final portfolio value of the most recent run per symbol",
		}, []string{"symbol"}),

		SweepRunsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_scheduled_total",
			Help:      "Total number of runs scheduled by parameter sweeps",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Parameter sweep duration in seconds",
			Buckets:   []float64{.01, .1, .5, 1, 5, 10, 30, 60},
		}),

		PricePointsImported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_points_imported_total",
			Help:      "Total number of price points imported by symbol",
		}, []string{"symbol"}),

		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished backtest run.
func RecordRun(strategyType, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(strategyType, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(strategyType).Observe(durationSeconds)
}

// RecordBars increments the simulated bars counter.
func RecordBars(n int) {
	DefaultMetrics.BarsSimulated.Add(float64(n))
}

// RecordTrade increments the executed trades counter for a side.
func RecordTrade(side string) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side).Inc()
}

// UpdateFinalValue sets the last final value gauge for a symbol.
func UpdateFinalValue(symbol string, value float64) {
	DefaultMetrics.LastFinalValue.WithLabelValues(symbol).Set(value)
}

// RecordSweep records a finished parameter sweep.
func RecordSweep(runs int, durationSeconds float64) {
	DefaultMetrics.SweepRunsScheduled.Add(float64(runs))
	DefaultMetrics.SweepDuration.Observe(durationSeconds)
}

// RecordImport records imported price points.
func RecordImport(symbol string, n int) {
	DefaultMetrics.PricePointsImported.WithLabelValues(symbol).Add(float64(n))
}

// RecordReport increments the reports generated counter.
func RecordReport() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
