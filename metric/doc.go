// Package metric provides Prometheus metrics infrastructure for the
// pipeline platform.
//
// The package separates platform metrics from component metrics.
// Platform metrics (service status, message counters, processing
// durations, NATS connection health) are created once by NewMetrics and
// shared by all components through the MetricsRegistry. Component
// metrics are registered by each component under its own service name,
// keyed "service.metric" to catch accidental duplicates at registration
// time rather than scrape time.
//
// Typical component usage:
//
//	registry := metric.NewMetricsRegistry()
//
//	linesTotal := prometheus.NewCounter(prometheus.CounterOpts{
//		Namespace: "wordstream",
//		Subsystem: "socket",
//		Name:      "lines_total",
//		Help:      "Total lines read from the socket source",
//	})
//	if err := registry.RegisterCounter("socket", "lines_total", linesTotal); err != nil {
//		return err
//	}
//
// The registry wraps a dedicated prometheus.Registry (not the global
// default) so tests can create isolated registries. Go runtime and
// process collectors are registered automatically.
//
// Server exposes the registry over HTTP:
//
//	srv := metric.NewServer(9090, "/metrics", registry, securityCfg)
//	go srv.Start()
//	defer srv.Stop()
//
// The server also answers /health for liveness probes and serves HTTPS
// when the platform security config enables server TLS.
package metric
