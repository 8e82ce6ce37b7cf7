// Package observability exposes Prometheus instrumentation for API calls and
// history cache lookups.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/client"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/history"
	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ client.Observer  = (*Metrics)(nil)
	_ history.Recorder = (*Metrics)(nil)
)

// Metrics centralizes Prometheus instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec

	historyLookups *prometheus.CounterVec

	usedMB      *prometheus.GaugeVec
	remainingMB *prometheus.GaugeVec
}

// NewMetrics builds a metrics container backed by the provided registry. If no
// registry is supplied, a new one is created.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{registry: reg}

	m.apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abb_api_requests_total",
		Help: "Upstream API requests grouped by endpoint and status code",
	}, []string{"endpoint", "status"})
	m.apiLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abb_api_request_duration_seconds",
		Help:    "Upstream API request latency distributions",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	m.historyLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abb_history_lookups_total",
		Help: "Per-day history lookups grouped by service and outcome",
	}, []string{"service_id", "outcome"})

	m.usedMB = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abb_usage_used_megabytes",
		Help: "Data used in the current billing period",
	}, []string{"service_id"})
	m.remainingMB = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abb_usage_remaining_megabytes",
		Help: "Data remaining in the current billing period, unset for unmetered plans",
	}, []string{"service_id"})

	reg.MustRegister(m.apiRequests, m.apiLatency, m.historyLookups, m.usedMB, m.remainingMB)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	m.apiRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLookup(serviceID string, outcome string) {
	m.historyLookups.WithLabelValues(serviceID, outcome).Inc()
}

// SetOverview publishes the usage gauges for a service.
func (m *Metrics) SetOverview(serviceID model.ServiceID, ov *model.UsageOverview) {
	sid := serviceID.String()
	m.usedMB.WithLabelValues(sid).Set(ov.UsedMB)
	if ov.Unmetered() {
		m.remainingMB.DeleteLabelValues(sid)
		return
	}
	m.remainingMB.WithLabelValues(sid).Set(*ov.RemainingMB)
}
