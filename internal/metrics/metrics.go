// Package metrics records Prometheus metrics for a collection run and writes
// them to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/danielolaszy/doc-issues/internal/consolidate"
	"github.com/danielolaszy/doc-issues/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics of a run.
type Metrics struct {
	IssuesTotal          *prometheus.CounterVec
	DegradationsTotal    *prometheus.CounterVec
	RepositoryFailures   *prometheus.CounterVec
	RunDuration          prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		IssuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doc_issues_consolidated_total",
				Help: "Total number of consolidated issues by repository.",
			},
			[]string{"repository"},
		),
		DegradationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doc_issues_degradations_total",
				Help: "Total number of optional lookups that failed, by repository and kind.",
			},
			[]string{"repository", "kind"},
		),
		RepositoryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doc_issues_repository_failures_total",
				Help: "Total number of repositories whose issues could not be fetched.",
			},
			[]string{"repository"},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "doc_issues_run_duration_seconds",
				Help: "Duration of the last collection run.",
			},
		),
		LastSuccessTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "doc_issues_last_success_timestamp_seconds",
				Help: "Unix time of the last run that wrote output.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.IssuesTotal)
	reg.MustRegister(m.DegradationsTotal)
	reg.MustRegister(m.RepositoryFailures)
	reg.MustRegister(m.RunDuration)
	reg.MustRegister(m.LastSuccessTimestamp)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IssueConsolidated increments the issue counter.
func (m *Metrics) IssueConsolidated(repository string) {
	m.IssuesTotal.WithLabelValues(repository).Inc()
}

// Degraded increments the degradation counter.
func (m *Metrics) Degraded(repository string, what consolidate.Degradation) {
	m.DegradationsTotal.WithLabelValues(repository, string(what)).Inc()
}

// RepositoryFailed increments the repository failure counter.
func (m *Metrics) RepositoryFailed(repository string) {
	m.RepositoryFailures.WithLabelValues(repository).Inc()
}

// ObserveRun records the run duration and, when output was written, the
// completion time.
func (m *Metrics) ObserveRun(start, end time.Time, written bool) {
	m.RunDuration.Set(end.Sub(start).Seconds())
	if written {
		m.LastSuccessTimestamp.Set(float64(end.Unix()))
	}
}

// WriteToTextfile writes the metrics in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	logging.Debug("metrics written", "path", path)
	return nil
}

var _ consolidate.Observer = (*Metrics)(nil)
