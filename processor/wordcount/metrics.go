package wordcount

import (
	"time"

	"github.com/c360/wordstream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// wcMetrics holds Prometheus metrics for word count processing.
type wcMetrics struct {
	linesProcessed *prometheus.CounterVec // By component
	wordsCounted   *prometheus.CounterVec // By component
	batchesEmitted *prometheus.CounterVec // By component
	emptyBatches   *prometheus.CounterVec // By component
	errors         *prometheus.CounterVec // By component and error_type

	batchCardinality *prometheus.HistogramVec // Distinct words per batch
	publishDuration  *prometheus.HistogramVec // Batch publish latency
}

// newWCMetrics creates and registers word count metrics with the registry.
// Returns nil when no registry is provided.
func newWCMetrics(registry *metric.MetricsRegistry) (*wcMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &wcMetrics{
		linesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "lines_processed_total",
			Help:      "Total text lines consumed",
		}, []string{"component"}),

		wordsCounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "words_counted_total",
			Help:      "Total word occurrences accumulated",
		}, []string{"component"}),

		batchesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "batches_emitted_total",
			Help:      "Total batch windows published",
		}, []string{"component"}),

		emptyBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "empty_batches_total",
			Help:      "Batch windows that closed with no words",
		}, []string{"component"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "errors_total",
			Help:      "Total processing errors",
		}, []string{"component", "error_type"}), // error_type: parse, type, marshal, publish

		batchCardinality: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "batch_word_cardinality",
			Help:      "Distinct words per emitted batch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"component"}),

		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wordstream",
			Subsystem: "wordcount",
			Name:      "publish_duration_seconds",
			Help:      "Batch publish latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"component"}),
	}

	if err := registry.RegisterCounterVec("wordcount", "lines_processed", m.linesProcessed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("wordcount", "words_counted", m.wordsCounted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("wordcount", "batches_emitted", m.batchesEmitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("wordcount", "empty_batches", m.emptyBatches); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("wordcount", "errors", m.errors); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("wordcount", "batch_cardinality", m.batchCardinality); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("wordcount", "publish_duration", m.publishDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordLine records one consumed line and the words it contributed.
func (m *wcMetrics) recordLine(componentName string, words int) {
	if m == nil {
		return
	}
	m.linesProcessed.WithLabelValues(componentName).Inc()
	if words > 0 {
		m.wordsCounted.WithLabelValues(componentName).Add(float64(words))
	}
}

// recordBatch records an emitted batch window.
func (m *wcMetrics) recordBatch(componentName string, distinctWords int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchesEmitted.WithLabelValues(componentName).Inc()
	if distinctWords == 0 {
		m.emptyBatches.WithLabelValues(componentName).Inc()
	}
	m.batchCardinality.WithLabelValues(componentName).Observe(float64(distinctWords))
	m.publishDuration.WithLabelValues(componentName).Observe(duration.Seconds())
}

// recordError records a processing error.
func (m *wcMetrics) recordError(componentName, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(componentName, errorType).Inc()
}
