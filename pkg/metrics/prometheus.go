// Package metrics provides Prometheus metrics for the sqxrank ranking runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Manager manages all Prometheus metrics for ranking runs.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Run metrics
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Dataset metrics
	recordsLoaded prometheus.Gauge
	recordsRanked prometheus.Gauge

	// Materialization metrics
	filesCopied               prometheus.Counter
	destinationEntriesRemoved prometheus.Counter

	// Error metrics
	errorsByKind *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sqxrank",
		subsystem:        "ranking",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "runs_total",
		Help:        "Total number of ranking runs by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_milliseconds",
		Help:        "Duration of a ranking run in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.recordsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_loaded",
		Help:        "Number of strategy records read by the last run",
		ConstLabels: constLabels,
	})

	m.recordsRanked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "records_ranked",
		Help:        "Size of the top-ranked table produced by the last run",
		ConstLabels: constLabels,
	})

	m.filesCopied = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "files_copied_total",
		Help:        "Total number of strategy files copied into the destination directory",
		ConstLabels: constLabels,
	})

	m.destinationEntriesRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "destination_entries_removed_total",
		Help:        "Total number of files and directories removed while clearing the destination",
		ConstLabels: constLabels,
	})

	m.errorsByKind = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_kind_total",
		Help:        "Total number of failed runs by error kind",
		ConstLabels: constLabels,
	}, []string{"kind"})
}

// RecordRun increments the run counter for the given outcome and observes its duration.
func (m *Manager) RecordRun(outcome string, durationMs float64) {
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(durationMs)
}

// RecordRun records a run on the global manager.
func RecordRun(outcome string, durationMs float64) {
	globalManager.RecordRun(outcome, durationMs)
}

// UpdateRecordsLoaded sets the number of records read from the input table.
func UpdateRecordsLoaded(count int) {
	globalManager.recordsLoaded.Set(float64(count))
}

// UpdateRecordsRanked sets the size of the produced top-ranked table.
func UpdateRecordsRanked(count int) {
	globalManager.recordsRanked.Set(float64(count))
}

// RecordFilesCopied adds n to the copied files counter.
func RecordFilesCopied(n int) {
	if n > 0 {
		globalManager.filesCopied.Add(float64(n))
	}
}

// RecordDestinationEntriesRemoved adds n to the removed destination entries counter.
func RecordDestinationEntriesRemoved(n int) {
	if n > 0 {
		globalManager.destinationEntriesRemoved.Add(float64(n))
	}
}

// RecordError increments the error counter for kind.
func RecordError(kind string) {
	globalManager.errorsByKind.WithLabelValues(kind).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the custom registry in the text exposition format to
// path, suitable for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}
