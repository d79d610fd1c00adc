// Package health provides health status types and aggregation for
// pipeline components.
//
// A Status carries a component name, one of three states (healthy,
// degraded, unhealthy), a human-readable message, and optional
// sub-statuses and metrics. Monitor collects statuses from many
// components and aggregates them into a single system status: any
// unhealthy component makes the system unhealthy, otherwise any
// degraded component makes it degraded.
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("socket-input", "connected to source")
//	monitor.UpdateDegraded("wordcount", "window behind schedule")
//
//	system := monitor.AggregateHealth("wordstream")
//	// system.Status == "degraded"
//
// FromComponentHealth adapts the component.HealthStatus reported by
// Discoverable components, sanitizing error messages so URLs, file
// paths, addresses, and credentials never leak into health output.
package health
