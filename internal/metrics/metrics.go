package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook request metrics
	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feishu_trigger_webhook_requests_total",
			Help: "Total number of webhook requests by trigger and HTTP status",
		},
		[]string{"trigger", "status"},
	)

	WebhookBodyBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feishu_trigger_webhook_body_bytes_total",
			Help: "Total bytes of webhook bodies received",
		},
	)

	// Shaping metrics
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feishu_trigger_outcomes_total",
			Help: "Total number of shaped events by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// Dispatch metrics
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feishu_trigger_dispatch_duration_seconds",
			Help:    "Duration of workflow item dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feishu_trigger_dispatch_errors_total",
			Help: "Total number of workflow dispatch errors",
		},
	)

	ItemsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feishu_trigger_items_dispatched_total",
			Help: "Total number of workflow items dispatched",
		},
		[]string{"trigger"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feishu_trigger_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"key"},
	)
)
