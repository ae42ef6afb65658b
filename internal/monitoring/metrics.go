// Package monitoring exposes Prometheus metrics for long-running sweeps.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	entriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_entries_total",
			Help: "Total number of simulated trade entries",
		},
		[]string{"symbol"},
	)

	exitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_exits_total",
			Help: "Total number of simulated trade exits by reason",
		},
		[]string{"reason"},
	)

	dataGapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtest_data_gaps_total",
			Help: "Total number of missing-price data gaps absorbed",
		},
	)

	windowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkforward_windows_total",
			Help: "Walk-forward windows processed by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_sweep_job_duration_seconds",
			Help:    "Duration of individual parameter-sweep jobs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(entriesTotal)
	prometheus.MustRegister(exitsTotal)
	prometheus.MustRegister(dataGapsTotal)
	prometheus.MustRegister(windowsTotal)
	prometheus.MustRegister(sweepDuration)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordEntry records a simulated trade entry.
func RecordEntry(symbol string) {
	entriesTotal.WithLabelValues(symbol).Inc()
}

// RecordExit records a simulated trade exit by reason.
func RecordExit(reason string) {
	exitsTotal.WithLabelValues(reason).Inc()
}

// RecordDataGap records an absorbed missing-price gap.
func RecordDataGap() {
	dataGapsTotal.Inc()
}

// RecordWindow records a walk-forward window outcome (completed/skipped).
func RecordWindow(outcome string) {
	windowsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweepJob records the duration of one sweep job in seconds.
func ObserveSweepJob(seconds float64) {
	sweepDuration.Observe(seconds)
}
