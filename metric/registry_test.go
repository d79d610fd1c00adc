package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, registry *MetricsRegistry) map[string]bool {
	t.Helper()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(metricFamilies))
	for _, mf := range metricFamilies {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestNewMetricsRegistry_CoreMetricsRegistered(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.Metrics.RecordServiceStatus("wordcount", 2)

	names := gatherNames(t, registry)
	assert.True(t, names["wordstream_service_status"])
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_lines_total",
		Help: "Total lines read",
	})

	err := registry.RegisterCounter("socket", "lines_total", counter)
	require.NoError(t, err)

	counter.Inc()

	names := gatherNames(t, registry)
	assert.True(t, names["socket_lines_total"])
}

func TestMetricsRegistry_RegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wordcount_window_words",
		Help: "Distinct words in the current window",
	})

	err := registry.RegisterGauge("wordcount", "window_words", gauge)
	require.NoError(t, err)

	gauge.Set(42)

	names := gatherNames(t, registry)
	assert.True(t, names["wordcount_window_words"])
}

func TestMetricsRegistry_RegisterHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wordcount_batch_duration_seconds",
		Help:    "Batch emit duration",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("wordcount", "batch_duration", histogram)
	require.NoError(t, err)

	histogram.Observe(0.01)

	names := gatherNames(t, registry)
	assert.True(t, names["wordcount_batch_duration_seconds"])
}

func TestMetricsRegistry_RegisterVecs(t *testing.T) {
	registry := NewMetricsRegistry()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_batches_total",
		Help: "Batches written by sink",
	}, []string{"sink"})
	require.NoError(t, registry.RegisterCounterVec("console", "batches_total", counterVec))

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "console_last_batch_size",
		Help: "Entries in the last batch",
	}, []string{"sink"})
	require.NoError(t, registry.RegisterGaugeVec("console", "last_batch_size", gaugeVec))

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_write_duration_seconds",
		Help:    "Batch write duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
	require.NoError(t, registry.RegisterHistogramVec("console", "write_duration", histogramVec))

	counterVec.WithLabelValues("stdout").Inc()
	gaugeVec.WithLabelValues("stdout").Set(3)
	histogramVec.WithLabelValues("stdout").Observe(0.001)

	names := gatherNames(t, registry)
	assert.True(t, names["console_batches_total"])
	assert.True(t, names["console_last_batch_size"])
	assert.True(t, names["console_write_duration_seconds"])
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_lines_total",
		Help: "Total lines read",
	})

	require.NoError(t, registry.RegisterCounter("socket", "lines_total", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_lines_other_total",
		Help: "Other counter",
	})
	err := registry.RegisterCounter("socket", "lines_total", other)
	assert.Error(t, err)
}

func TestMetricsRegistry_PrometheusNameConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_name_total",
		Help: "First",
	})
	require.NoError(t, registry.RegisterCounter("svc-a", "shared", first))

	// Same Prometheus name under a different registry key
	second := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_name_total",
		Help: "First",
	})
	err := registry.RegisterCounter("svc-b", "shared", second)
	assert.Error(t, err)
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_lines_total",
		Help: "Total lines read",
	})

	require.NoError(t, registry.RegisterCounter("socket", "lines_total", counter))
	assert.True(t, registry.Unregister("socket", "lines_total"))

	// Unregistering again reports false
	assert.False(t, registry.Unregister("socket", "lines_total"))

	// Name is free again
	again := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socket_lines_total",
		Help: "Total lines read",
	})
	assert.NoError(t, registry.RegisterCounter("socket", "lines_total", again))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make([]error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", n),
				Help: "Concurrent registration test",
			})
			errs[n] = registry.RegisterCounter("test", fmt.Sprintf("counter_%d", n), counter)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestCoreMetrics_Recorders(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordServiceStatus("wordcount", 2)
	m.RecordMessageReceived("wordcount", "text.line.v1")
	m.RecordMessageProcessed("wordcount", "text.line.v1", "success")
	m.RecordMessagePublished("wordcount", "text.counts")
	m.RecordProcessingDuration("wordcount", "accumulate", 5*time.Millisecond)
	m.RecordError("wordcount", "transient")
	m.RecordHealthStatus("wordcount", true)
	m.RecordNATSStatus(true)
	m.RecordNATSRTT(2 * time.Millisecond)
	m.RecordNATSReconnect()
	m.RecordCircuitBreakerState(0)

	names := gatherNames(t, registry)
	assert.True(t, names["wordstream_messages_received_total"])
	assert.True(t, names["wordstream_messages_processed_total"])
	assert.True(t, names["wordstream_messages_published_total"])
	assert.True(t, names["wordstream_processing_duration_seconds"])
	assert.True(t, names["wordstream_errors_total"])
	assert.True(t, names["wordstream_health_status"])
	assert.True(t, names["wordstream_nats_connected"])
}
