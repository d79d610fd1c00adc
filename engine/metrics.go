package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/wordstream/metric"
)

// engineMetrics holds Prometheus metrics for pipeline lifecycle operations.
// It also feeds the shared platform metrics so per-component service status
// and health show up under the wordstream_service and wordstream_health
// families.
type engineMetrics struct {
	core *metric.Metrics

	componentsCreated *prometheus.CounterVec // By component type
	starts            *prometheus.CounterVec // By component and status
	stops             *prometheus.CounterVec // By component and status

	startDuration *prometheus.HistogramVec // By component
	stopDuration  *prometheus.HistogramVec // By component

	wiringIssues *prometheus.CounterVec // By severity

	runningComponents prometheus.Gauge
}

// newEngineMetrics creates and registers engine metrics with the provided
// registry. A nil registry disables metrics.
func newEngineMetrics(registry *metric.MetricsRegistry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &engineMetrics{
		core: registry.CoreMetrics(),

		componentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "components_created_total",
			Help:      "Total number of components created by type",
		}, []string{"type"}),

		starts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "component_starts_total",
			Help:      "Total number of component start operations",
		}, []string{"component", "status"}), // status: success, failure

		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "component_stops_total",
			Help:      "Total number of component stop operations",
		}, []string{"component", "status"}),

		startDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "component_start_duration_seconds",
			Help:      "Component start duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"component"}),

		stopDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "component_stop_duration_seconds",
			Help:      "Component stop duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"component"}),

		wiringIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "wiring_issues_total",
			Help:      "Total number of pipeline wiring issues found during validation",
		}, []string{"severity"}),

		runningComponents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wordstream",
			Subsystem: "engine",
			Name:      "running_components",
			Help:      "Current number of started components",
		}),
	}

	if err := registry.RegisterCounterVec("engine", "components_created", m.componentsCreated); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "component_starts", m.starts); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "component_stops", m.stops); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "component_start_duration", m.startDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("engine", "component_stop_duration", m.stopDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("engine", "wiring_issues", m.wiringIssues); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("engine", "running_components", m.runningComponents); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *engineMetrics) recordServiceStatus(name string, status int) {
	if m == nil || m.core == nil {
		return
	}
	m.core.RecordServiceStatus(name, status)
}

func (m *engineMetrics) recordHealth(name string, healthy bool) {
	if m == nil || m.core == nil {
		return
	}
	m.core.RecordHealthStatus(name, healthy)
}

func (m *engineMetrics) recordCreate(componentType string) {
	if m == nil {
		return
	}
	m.componentsCreated.WithLabelValues(componentType).Inc()
}

func (m *engineMetrics) recordStart(name string, success bool, duration float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.starts.WithLabelValues(name, status).Inc()
	m.startDuration.WithLabelValues(name).Observe(duration)
}

func (m *engineMetrics) recordStop(name string, success bool, duration float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.stops.WithLabelValues(name, status).Inc()
	m.stopDuration.WithLabelValues(name).Observe(duration)
}

func (m *engineMetrics) recordWiring(report *WiringReport) {
	if m == nil {
		return
	}
	for range report.Errors {
		m.wiringIssues.WithLabelValues("error").Inc()
	}
	for range report.Warnings {
		m.wiringIssues.WithLabelValues("warning").Inc()
	}
}

func (m *engineMetrics) setRunning(count float64) {
	if m != nil {
		m.runningComponents.Set(count)
	}
}
