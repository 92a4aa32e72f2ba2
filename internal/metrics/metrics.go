// Package metrics exposes Prometheus counters for data loading, scheduled
// reports and notifications. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hedge"

// Data load outcomes.
const (
	OutcomeCache       = "cache"
	OutcomeLive        = "live"
	OutcomeFallback    = "fallback"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	DataLoads      *prometheus.CounterVec
	Retries        *prometheus.CounterVec
	Reports        *prometheus.CounterVec
	ReportFailures prometheus.Counter
	Notifications  *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a new registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DataLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_loads_total",
			Help:      "Market data loads by cache kind and outcome.",
		}, []string{"kind", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Upstream retries by operation.",
		}, []string{"op"}),
		Reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Hedge reports by requested regime and resulting classification.",
		}, []string{"regime", "classification"}),
		ReportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_failures_total",
			Help:      "Report runs that ended in an error.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Report deliveries by status.",
		}, []string{"status"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DataLoads,
		m.Retries,
		m.Reports,
		m.ReportFailures,
		m.Notifications,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLoad(kind, outcome string) {
	if m == nil {
		return
	}
	m.DataLoads.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRetry(op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveReport(regime, classification string) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(regime, classification).Inc()
}

func (m *Metrics) ObserveReportFailure() {
	if m == nil {
		return
	}
	m.ReportFailures.Inc()
}

// ObserveNotification records a delivery; err nil counts as sent.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.Notifications.WithLabelValues(status).Inc()
}
