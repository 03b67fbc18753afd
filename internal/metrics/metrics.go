package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "birdwatch"

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	WebhookRequests   *prometheus.CounterVec
	InferenceRequests *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	FeedbackRecords   *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_requests_total",
				Help:      "Webhook requests by payload kind and response status",
			},
			[]string{"kind", "status"},
		),
		InferenceRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inference_requests_total",
				Help:      "Inference invocations by outcome",
			},
			[]string{"outcome"},
		),
		InferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Inference invocation latency",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		FeedbackRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_records_total",
				Help:      "Feedback actions by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.WebhookRequests,
		m.InferenceRequests,
		m.InferenceDuration,
		m.FeedbackRecords,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}
