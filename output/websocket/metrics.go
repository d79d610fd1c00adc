package websocket

import (
	"fmt"

	"github.com/c360/wordstream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the WebSocket output component.
type Metrics struct {
	batchesReceived   prometheus.Counter
	framesSent        prometheus.Counter
	bytesSent         prometheus.Counter
	clientsConnected  prometheus.Gauge
	connectionsTotal  prometheus.Counter
	disconnections    *prometheus.CounterVec
	broadcastDuration prometheus.Histogram
	errors            *prometheus.CounterVec
}

// newMetrics creates and registers WebSocket output metrics. Returns nil
// when no registry is provided.
func newMetrics(registry *metric.MetricsRegistry, port int) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		batchesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "batches_received_total",
			Help:      "Word count batches received from NATS",
		}),
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "frames_sent_total",
			Help:      "Frames delivered to WebSocket clients",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "bytes_sent_total",
			Help:      "Bytes delivered to WebSocket clients",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "clients_connected",
			Help:      "Currently connected WebSocket clients",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "client_connections_total",
			Help:      "Total client connections accepted",
		}),
		disconnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "client_disconnections_total",
			Help:      "Total client disconnections",
		}, []string{"reason"}),
		broadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "broadcast_duration_seconds",
			Help:      "Time to broadcast a batch to all clients",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "websocket",
			Name:      "errors_total",
			Help:      "WebSocket server errors",
		}, []string{"error_type"}),
	}

	serviceName := fmt.Sprintf("websocket_%d", port)
	registry.RegisterCounter(serviceName, "batches_received", m.batchesReceived)
	registry.RegisterCounter(serviceName, "frames_sent", m.framesSent)
	registry.RegisterCounter(serviceName, "bytes_sent", m.bytesSent)
	registry.RegisterGauge(serviceName, "clients_connected", m.clientsConnected)
	registry.RegisterCounter(serviceName, "connections_total", m.connectionsTotal)
	registry.RegisterCounterVec(serviceName, "disconnections", m.disconnections)
	registry.RegisterHistogram(serviceName, "broadcast_duration", m.broadcastDuration)
	registry.RegisterCounterVec(serviceName, "errors", m.errors)

	return m
}
