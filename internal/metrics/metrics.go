// Package metrics defines the Prometheus collectors for outbox and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/outbox/internal/core/ports/driven"
)

// Ensure Metrics implements the import telemetry port.
var _ driven.ImportMetrics = (*Metrics)(nil)

// Metrics holds all Prometheus collectors for outbox.
type Metrics struct {
	registry *prometheus.Registry

	ActivitiesUpserted prometheus.Counter
	RecordsSkipped     *prometheus.CounterVec
	SourcesTotal       *prometheus.CounterVec
	SourceDuration     *prometheus.HistogramVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActivitiesUpserted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "outbox",
				Name:      "activities_upserted_total",
				Help:      "Total activities written by imports and seeds.",
			},
		),
		RecordsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outbox",
				Name:      "records_skipped_total",
				Help:      "Total import records skipped, by reason (missing_id, invalid).",
			},
			[]string{"reason"},
		),
		SourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outbox",
				Name:      "import_sources_total",
				Help:      "Total import sources processed, by status (ok, structural, failed, canceled).",
			},
			[]string{"status"},
		),
		SourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outbox",
				Name:      "import_source_duration_seconds",
				Help:      "Time spent importing one source, in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outbox",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests served, by method and status.",
			},
			[]string{"method", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActivitiesUpserted,
		m.RecordsSkipped,
		m.SourcesTotal,
		m.SourceDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

// RecordUpserted counts one activity written.
func (m *Metrics) RecordUpserted() {
	m.ActivitiesUpserted.Inc()
}

// RecordSkipped counts one record rejected without a write.
func (m *Metrics) RecordSkipped(reason string) {
	m.RecordsSkipped.WithLabelValues(reason).Inc()
}

// RecordSource records the outcome and duration of one source.
func (m *Metrics) RecordSource(status string, d time.Duration) {
	m.SourcesTotal.WithLabelValues(status).Inc()
	m.SourceDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
