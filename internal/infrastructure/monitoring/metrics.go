// Package monitoring provides Prometheus metrics and OpenTelemetry tracing
package monitoring

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nourish"

// Metrics handles Prometheus metrics collection. A nil *Metrics is valid and
// records nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcDuration     *prometheus.HistogramVec
	rateLimitedTotal *prometheus.CounterVec

	// Edge guard outcomes
	guardDecisionsTotal *prometheus.CounterVec

	// Business metrics
	domainEventsTotal     *prometheus.CounterVec
	billingWebhooksTotal  *prometheus.CounterVec
	subscriptionSyncTotal *prometheus.CounterVec
	realtimeConnections   prometheus.Gauge

	// External dependencies and background jobs
	externalCallsTotal   *prometheus.CounterVec
	externalCallDuration *prometheus.HistogramVec
	jobRunsTotal         *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rpcCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_calls_total",
				Help:      "RPC procedure calls by result code",
			},
			[]string{"procedure", "code"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_duration_seconds",
				Help:      "RPC procedure duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"procedure"},
		),
		rateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"procedure"},
		),
		guardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_guard_decisions_total",
				Help:      "Edge route guard outcomes",
			},
			[]string{"outcome"},
		),
		domainEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "domain_events_total",
				Help:      "Domain events published",
			},
			[]string{"event"},
		),
		billingWebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_webhooks_total",
				Help:      "Billing webhooks received by outcome",
			},
			[]string{"outcome"},
		),
		subscriptionSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscription_sync_total",
				Help:      "Subscriptions processed by reconciliation runs",
			},
			[]string{"result"},
		),
		realtimeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_connections",
				Help:      "Open realtime websocket connections",
			},
		),
		externalCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_calls_total",
				Help:      "Calls to external services by outcome",
			},
			[]string{"service", "outcome"},
		),
		externalCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_call_duration_seconds",
				Help:      "External service call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"service"},
		),
		jobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Background job runs by result",
			},
			[]string{"job", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.rpcCallsTotal,
		m.rpcDuration,
		m.rateLimitedTotal,
		m.guardDecisionsTotal,
		m.domainEventsTotal,
		m.billingWebhooksTotal,
		m.subscriptionSyncTotal,
		m.realtimeConnections,
		m.externalCallsTotal,
		m.externalCallDuration,
		m.jobRunsTotal,
	)
	return m
}

// RegisterDB exports connection pool statistics for db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records request metrics. route is the matched pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRPC records one procedure call; code is "OK" on success
func (m *Metrics) RecordRPC(procedure, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

// RecordRateLimited counts a rejected call
func (m *Metrics) RecordRateLimited(procedure string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(procedure).Inc()
}

// RecordGuardDecision counts an edge guard outcome
func (m *Metrics) RecordGuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhook counts a billing webhook by outcome
func (m *Metrics) RecordWebhook(outcome string) {
	if m == nil {
		return
	}
	m.billingWebhooksTotal.WithLabelValues(outcome).Inc()
}

// RecordSubscriptionSync adds the counts of one reconciliation run
func (m *Metrics) RecordSubscriptionSync(checked, updated, failed int) {
	if m == nil {
		return
	}
	m.subscriptionSyncTotal.WithLabelValues("checked").Add(float64(checked))
	m.subscriptionSyncTotal.WithLabelValues("updated").Add(float64(updated))
	m.subscriptionSyncTotal.WithLabelValues("failed").Add(float64(failed))
}

// RealtimeConnected adjusts the open connection gauge by delta
func (m *Metrics) RealtimeConnected(delta int) {
	if m == nil {
		return
	}
	m.realtimeConnections.Add(float64(delta))
}

// ObserveEvent counts domain events; it is registered on the event bus
func (m *Metrics) ObserveEvent(_ context.Context, event shared.DomainEvent) {
	if m == nil {
		return
	}
	m.domainEventsTotal.WithLabelValues(event.EventName()).Inc()
}

// RecordExternalCall counts one call to an external service
func (m *Metrics) RecordExternalCall(service, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.externalCallsTotal.WithLabelValues(service, outcome).Inc()
	m.externalCallDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordJobRun counts a background job run
func (m *Metrics) RecordJobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRunsTotal.WithLabelValues(job, result).Inc()
}
