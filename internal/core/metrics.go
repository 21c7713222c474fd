package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for imports and the audit log.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	importsTotal   *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	importDuration prometheus.Histogram
	importsActive  prometheus.Gauge

	auditWrites   *prometheus.CounterVec
	auditFailures prometheus.Counter

	devicesMutated *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macinv_imports_total",
				Help: "Total number of spreadsheet imports by outcome",
			},
			[]string{"outcome"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macinv_import_rows_total",
				Help: "Imported rows by result",
			},
			[]string{"result"},
		),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "macinv_import_duration_seconds",
			Help:    "Import run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		}),
		importsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "macinv_imports_active",
			Help: "Number of imports currently running",
		}),
		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macinv_audit_writes_total",
				Help: "Audit log entries written by action",
			},
			[]string{"action"},
		),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macinv_audit_write_failures_total",
			Help: "Audit log writes that failed",
		}),
		devicesMutated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macinv_device_mutations_total",
				Help: "Single-device mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
	}

	reg.MustRegister(
		m.importsTotal,
		m.importRows,
		m.importDuration,
		m.importsActive,
		m.auditWrites,
		m.auditFailures,
		m.devicesMutated,
	)
	return m
}

func (m *Metrics) importFinished(outcome string, summary ImportSummary, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(outcome).Inc()
	m.importDuration.Observe(elapsed.Seconds())
	m.importRows.WithLabelValues("inserted").Add(float64(summary.Inserted))
	m.importRows.WithLabelValues("duplicate").Add(float64(summary.Duplicates))
	m.importRows.WithLabelValues("failed").Add(float64(summary.Failed))
}

func (m *Metrics) importStarted() {
	if m == nil {
		return
	}
	m.importsActive.Inc()
}

func (m *Metrics) importEnded() {
	if m == nil {
		return
	}
	m.importsActive.Dec()
}

func (m *Metrics) auditWritten(action AuditAction) {
	if m == nil {
		return
	}
	m.auditWrites.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) auditWriteFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *Metrics) deviceMutation(op, result string) {
	if m == nil {
		return
	}
	m.devicesMutated.WithLabelValues(op, result).Inc()
}
