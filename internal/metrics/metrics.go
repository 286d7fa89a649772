// Package metrics exposes relay counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payrelay"

const (
	resultOK    = "ok"
	resultError = "error"
)

type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	publish  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_outcomes_total",
			Help:      "Webhook deliveries by terminal outcome and provider event type.",
		}, []string{"outcome", "event_type"}),
		publish: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_publish_seconds",
			Help:      "Time spent waiting for the bus to acknowledge a publish.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"topic", "result"}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.publish,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordOutcome(outcome, eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.outcomes.WithLabelValues(outcome, eventType).Inc()
}

func (m *Metrics) ObservePublish(topic string, d time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.publish.WithLabelValues(topic, result).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
