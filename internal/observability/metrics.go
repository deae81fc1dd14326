package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for grid
// generation and export.
type Metrics struct {
	DaysWritten   prometheus.Counter
	DaysFailed    prometheus.Counter
	DayDuration   prometheus.Histogram
	WorkersActive prometheus.Gauge

	// Export metrics.
	RecordsExported prometheus.Counter
	InsertErrors    prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DaysWritten,
		m.DaysFailed,
		m.DayDuration,
		m.WorkersActive,
		m.RecordsExported,
		m.InsertErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DaysWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solargrid",
			Name:      "days_written_total",
			Help:      "Daily grid files written.",
		}),
		DaysFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solargrid",
			Name:      "days_failed_total",
			Help:      "Days whose grid could not be computed or written.",
		}),
		DayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "solargrid",
			Name:      "day_duration_seconds",
			Help:      "Time to compute and write one daily grid.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solargrid",
			Name:      "workers_active",
			Help:      "Workers still processing their day range.",
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solargrid",
			Name:      "records_exported_total",
			Help:      "Grid records sent to Victoria Metrics.",
		}),
		InsertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solargrid",
			Name:      "insert_errors_total",
			Help:      "Failed Victoria Metrics insert requests.",
		}),
	}
}
