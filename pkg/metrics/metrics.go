// Package metrics provides Prometheus metrics for screening runs.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ramsey-B/thistle/pkg/matching"
)

const namespace = "thistle"

// Metrics holds the collectors of one registry
type Metrics struct {
	registry *prometheus.Registry

	// RuleMatchesTotal tracks matched customers per rule
	RuleMatchesTotal *prometheus.CounterVec
	// RuleRowsTotal tracks emitted ledger rows per rule, ties included
	RuleRowsTotal *prometheus.CounterVec
	// PoolSize tracks the unmatched pool after the latest rule
	PoolSize *prometheus.GaugeVec
	// RecordsLoadedTotal tracks records read per list
	RecordsLoadedTotal *prometheus.CounterVec
	// DuplicatesDroppedTotal tracks watchlist rows dropped as full-row duplicates
	DuplicatesDroppedTotal *prometheus.CounterVec
	// MalformedFieldsTotal tracks field values dropped during normalization
	MalformedFieldsTotal *prometheus.CounterVec
	// RunDuration tracks screening run duration in seconds
	RunDuration *prometheus.HistogramVec
	// ScreenRequestsTotal tracks ad-hoc screening requests
	ScreenRequestsTotal *prometheus.CounterVec
}

// New registers the screening collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RuleMatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cascade",
				Name:      "rule_matches_total",
				Help:      "Total number of customers matched per rule",
			},
			[]string{"stage", "side", "rank"},
		),
		RuleRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cascade",
				Name:      "rule_rows_total",
				Help:      "Total number of ledger rows emitted per rule",
			},
			[]string{"stage", "side", "rank"},
		),
		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cascade",
				Name:      "unmatched_pool_size",
				Help:      "Customers still unmatched after the latest rule",
			},
			[]string{"stage", "side"},
		),
		RecordsLoadedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "input",
				Name:      "records_loaded_total",
				Help:      "Total number of records loaded per list",
			},
			[]string{"list"},
		),
		DuplicatesDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "input",
				Name:      "duplicates_dropped_total",
				Help:      "Total number of duplicate watchlist rows dropped",
			},
			[]string{"list"},
		),
		MalformedFieldsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "input",
				Name:      "malformed_fields_total",
				Help:      "Total number of malformed field values dropped per list and field",
			},
			[]string{"list", "field"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Duration of screening runs in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"mode"},
		),
		ScreenRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "screen_requests_total",
				Help:      "Total number of ad-hoc screening requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRule records the outcome of one cascade rule
func (m *Metrics) ObserveRule(_ context.Context, step matching.RuleStep) error {
	rank := strconv.Itoa(step.Rank)
	m.RuleMatchesTotal.WithLabelValues(string(step.Stage), string(step.Side), rank).Add(float64(step.Matched))
	m.RuleRowsTotal.WithLabelValues(string(step.Stage), string(step.Side), rank).Add(float64(step.Rows))
	m.PoolSize.WithLabelValues(string(step.Stage), string(step.Side)).Set(float64(step.PoolAfter))
	return nil
}

// ObserveRun records the duration of a run
func (m *Metrics) ObserveRun(mode string, d time.Duration) {
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
