// Package metrics holds the Prometheus collectors recorded by the metrics
// policy.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all pipeline collectors. Register one set per registry;
// collectors are vectored by method and status so a single set serves every
// pipeline in a process.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	RetriesTotal    prometheus.Counter
	Inflight        prometheus.Gauge
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_requests_total",
				Help: "Total number of pipeline sends",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_request_duration_seconds",
				Help:    "Pipeline send duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_response_size_bytes",
				Help:    "Response size in bytes as reported by Content-Length",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method"},
		),
		RetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_retries_total",
				Help: "Total number of retried attempts",
			},
		),
		Inflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_inflight_requests",
				Help: "Requests currently inside the pipeline",
			},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.ResponseSize, m.RetriesTotal, m.Inflight)
	return m
}

// RecordSend records one completed send.
func (m *Metrics) RecordSend(method, status string, duration time.Duration, responseSize int64) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	if responseSize >= 0 {
		m.ResponseSize.WithLabelValues(method).Observe(float64(responseSize))
	}
}
