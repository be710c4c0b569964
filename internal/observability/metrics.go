package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alerter.
type Metrics struct {
	RuleEvaluations   *prometheus.CounterVec // labels: rule, outcome={fired,not_met,suppressed,unavailable}
	NotificationsSent *prometheus.CounterVec // labels: status={ok,error}
	EventsPublished   prometheus.Counter
	EventPublishError prometheus.Counter

	GatewayRequestDuration *prometheus.HistogramVec // labels: gateway={aeris,pushover}, operation
	RunDuration            prometheus.Histogram
	LastRunTimestamp       prometheus.Gauge
}

// NewMetrics creates and registers all alerter metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RuleEvaluations,
		m.NotificationsSent,
		m.EventsPublished,
		m.EventPublishError,
		m.GatewayRequestDuration,
		m.RunDuration,
		m.LastRunTimestamp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RuleEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pws_alerter",
			Name:      "rule_evaluations_total",
			Help:      "Rule evaluations by rule and outcome.",
		}, []string{"rule", "outcome"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pws_alerter",
			Name:      "notifications_total",
			Help:      "Notification attempts by delivery status.",
		}, []string{"status"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pws_alerter",
			Name:      "alert_events_published_total",
			Help:      "Alert events published to the event stream.",
		}),
		EventPublishError: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pws_alerter",
			Name:      "alert_event_publish_errors_total",
			Help:      "Alert event publish failures.",
		}),
		GatewayRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pws_alerter",
			Name:      "gateway_request_duration_seconds",
			Help:      "External gateway request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"gateway", "operation"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pws_alerter",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete rule run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pws_alerter",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed rule run.",
		}),
	}
}
