// Package metrics exposes the Prometheus instruments of the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deepdive"

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	ProviderCallsTotal      *prometheus.CounterVec
	FallbacksTotal          *prometheus.CounterVec
	ReportsRenderedTotal    *prometheus.CounterVec
	ComparisonProjectsTotal *prometheus.CounterVec
	AnalysisDuration        *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all instruments with reg, or with a fresh registry when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProviderCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Provider calls by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Deterministic fallbacks taken by scoring operation",
			},
			[]string{"operation"},
		),
		ReportsRenderedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_rendered_total",
				Help:      "PDF renders by report kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ComparisonProjectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparison_projects_total",
				Help:      "Projects analyzed inside comparisons by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "End to end duration of single project analyses",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2min
			},
			[]string{"outcome"},
		),
		gatherer: reg,
	}
}

func (m *Metrics) ProviderCall(source, outcome string) {
	if m == nil {
		return
	}
	m.ProviderCallsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) Fallback(operation string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) ReportRendered(kind string, err error) {
	if m == nil {
		return
	}
	m.ReportsRenderedTotal.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) ComparisonProjects(succeeded, failed int) {
	if m == nil {
		return
	}
	m.ComparisonProjectsTotal.WithLabelValues("success").Add(float64(succeeded))
	m.ComparisonProjectsTotal.WithLabelValues("failure").Add(float64(failed))
}

func (m *Metrics) ObserveAnalysis(start time.Time, err error) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}

// Gatherer exposes the registry backing m.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.gatherer
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
