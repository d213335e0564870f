// Package telemetry exposes Prometheus metrics for batch calculation runs
// and a small HTTP server serving /health and /metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments of a calculation run.
type Metrics struct {
	registry *prometheus.Registry

	// Calculations counts per-netting-set calculations by kind
	// (exposure|margin) and result (ok|validation|configuration|computation).
	Calculations *prometheus.CounterVec

	// BatchRows counts input rows by result (ok|invalid).
	BatchRows *prometheus.CounterVec

	// CalcDuration observes per-netting-set calculation latency by kind.
	CalcDuration *prometheus.HistogramVec

	// ActiveBatches tracks concurrently running batch calculations.
	ActiveBatches prometheus.Gauge
}

// NewMetrics creates and registers the riskrun metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskrun_calculations_total",
				Help: "Total number of netting-set calculations by kind and result",
			},
			[]string{"kind", "result"},
		),

		BatchRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskrun_batch_rows_total",
				Help: "Total number of batch input rows by result",
			},
			[]string{"result"},
		),

		CalcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskrun_calculation_duration_seconds",
				Help:    "Duration of one netting-set calculation in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"kind"},
		),

		ActiveBatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskrun_active_batches",
				Help: "Number of currently running batch calculations",
			},
		),
	}

	m.registry.MustRegister(
		m.Calculations,
		m.BatchRows,
		m.CalcDuration,
		m.ActiveBatches,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry for tests and the health endpoint.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}
