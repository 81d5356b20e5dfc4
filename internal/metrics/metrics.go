// Package metrics exposes Prometheus instrumentation for the payments API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsInitiated counts InitiatePayment calls that claimed a new
	// idempotency key (replays excluded)
	PaymentsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "New payment orchestrations started",
	})

	// Charges counts charge step outcomes
	Charges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_charges_total",
		Help: "Charge step outcomes",
	}, []string{"outcome"})

	// Transfers counts transfer step outcomes
	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_transfers_total",
		Help: "Transfer step outcomes",
	}, []string{"outcome"})

	// Refunds counts operator-triggered refunds
	Refunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_refunds_total",
		Help: "Operator-triggered refunds",
	})

	// WebhookEvents counts processed webhook deliveries by type and result
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_webhook_events_total",
		Help: "Webhook deliveries by event type and handling result",
	}, []string{"type", "result"})

	// SignatureFailures counts webhook deliveries rejected before any state
	// mutation. Alert-worthy if it climbs.
	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_webhook_signature_failures_total",
		Help: "Webhook deliveries rejected for invalid signatures",
	})

	// HTTPRequests counts API requests by method, route and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes API request latency by method and route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"method", "route"})
)
