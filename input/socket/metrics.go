package socket

import (
	"fmt"

	"github.com/c360/wordstream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the socket input component.
type Metrics struct {
	linesReceived  prometheus.Counter
	bytesReceived  prometheus.Counter
	linesDropped   prometheus.Counter
	linesRejected  prometheus.Counter
	reconnects     prometheus.Counter
	readErrors     prometheus.Counter
	rateLimited    prometheus.Counter
	publishLatency prometheus.Histogram
	connected      prometheus.Gauge
	lastActivity   prometheus.Gauge
}

// newMetrics creates and registers socket input metrics. Returns nil when
// no registry is provided.
func newMetrics(registry *metric.MetricsRegistry, host string, port int) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		linesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "lines_received_total",
			Help:      "Total lines read from the socket source",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from the socket source",
		}),
		linesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "lines_dropped_total",
			Help:      "Lines dropped due to buffer overflow",
		}),
		linesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "lines_rejected_total",
			Help:      "Oversized lines that failed the scan and dropped the connection",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "reconnects_total",
			Help:      "Reconnection attempts to the socket source",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "read_errors_total",
			Help:      "Socket read errors encountered",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "rate_limited_total",
			Help:      "Lines delayed by the configured rate limit",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish lines to NATS",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "connected",
			Help:      "Whether the source connection is established (0 or 1)",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wordstream",
			Subsystem: "socket",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last received line",
		}),
	}

	serviceName := fmt.Sprintf("socket_%s_%d", host, port)
	registry.RegisterCounter(serviceName, "lines_received", m.linesReceived)
	registry.RegisterCounter(serviceName, "bytes_received", m.bytesReceived)
	registry.RegisterCounter(serviceName, "lines_dropped", m.linesDropped)
	registry.RegisterCounter(serviceName, "lines_rejected", m.linesRejected)
	registry.RegisterCounter(serviceName, "reconnects", m.reconnects)
	registry.RegisterCounter(serviceName, "read_errors", m.readErrors)
	registry.RegisterCounter(serviceName, "rate_limited", m.rateLimited)
	registry.RegisterHistogram(serviceName, "publish_latency", m.publishLatency)
	registry.RegisterGauge(serviceName, "connected", m.connected)
	registry.RegisterGauge(serviceName, "last_activity", m.lastActivity)

	return m
}
