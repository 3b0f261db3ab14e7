package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	registry       *prometheus.Registry
	registryOnce   sync.Once
	metricsEnabled = true

	// Analysis run metrics
	AnalysesStarted   *prometheus.CounterVec
	AnalysesCompleted *prometheus.CounterVec
	AnalysesFailed    prometheus.Counter
	AnalysisDuration  *prometheus.HistogramVec
	ActiveAnalyses    prometheus.Gauge

	// Per-analyzer metrics
	AnalyzerDuration *prometheus.HistogramVec
	AnalyzerFailures *prometheus.CounterVec

	// Result store metrics
	StoreHits   prometheus.Counter
	StoreMisses prometheus.Counter
	StoreErrors *prometheus.CounterVec

	// Event publishing metrics
	EventsPublished *prometheus.CounterVec
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesStarted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_analyses_started_total",
				Help: "Total number of analysis runs started",
			},
			[]string{"strategy"},
		)

		AnalysesCompleted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_analyses_completed_total",
				Help: "Total number of analysis runs completed",
			},
			[]string{"strategy", "status"},
		)

		AnalysesFailed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatlytics_analyses_failed_total",
				Help: "Total number of analysis runs that produced an error namespace",
			},
		)

		AnalysisDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatlytics_analysis_duration_seconds",
				Help:    "Wall-clock duration of full analysis runs",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"strategy"},
		)

		ActiveAnalyses = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatlytics_analyses_active",
				Help: "Number of analysis runs currently executing",
			},
		)

		AnalyzerDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatlytics_analyzer_duration_seconds",
				Help:    "Duration of individual analyzer passes",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"analyzer"},
		)

		AnalyzerFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_analyzer_failures_total",
				Help: "Total number of individual analyzer failures",
			},
			[]string{"analyzer"},
		)

		StoreHits = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatlytics_store_hits_total",
				Help: "Cached result documents served without recomputation",
			},
		)

		StoreMisses = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatlytics_store_misses_total",
				Help: "Analysis runs that found no cached result document",
			},
		)

		StoreErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_store_errors_total",
				Help: "Result store operation failures",
			},
			[]string{"operation"},
		)

		EventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatlytics_events_published_total",
				Help: "Analysis-completed events published",
			},
			[]string{"status"},
		)

		registry.MustRegister(
			AnalysesStarted,
			AnalysesCompleted,
			AnalysesFailed,
			AnalysisDuration,
			ActiveAnalyses,
			AnalyzerDuration,
			AnalyzerFailures,
			StoreHits,
			StoreMisses,
			StoreErrors,
			EventsPublished,
		)

		logger.Debug("Prometheus metrics initialized")
	})
}

// GetRegistry returns the metrics registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// EnableMetrics toggles metric collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled reports whether metric collection is on
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// ObserveAnalyzer returns a closure that records the analyzer's duration when
// called.
func ObserveAnalyzer(analyzer string) func() {
	if !metricsEnabled || AnalyzerDuration == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		AnalyzerDuration.WithLabelValues(analyzer).Observe(time.Since(start).Seconds())
	}
}

// RecordAnalyzerFailure counts one analyzer failure
func RecordAnalyzerFailure(analyzer string) {
	if !metricsEnabled || AnalyzerFailures == nil {
		return
	}
	AnalyzerFailures.WithLabelValues(analyzer).Inc()
}

// RecordStoreHit counts a memoized result being served
func RecordStoreHit() {
	if metricsEnabled && StoreHits != nil {
		StoreHits.Inc()
	}
}

// RecordStoreMiss counts a cache miss
func RecordStoreMiss() {
	if metricsEnabled && StoreMisses != nil {
		StoreMisses.Inc()
	}
}

// RecordStoreError counts a store failure by operation
func RecordStoreError(operation string) {
	if metricsEnabled && StoreErrors != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEventPublish counts one event publish attempt
func RecordEventPublish(status string) {
	if metricsEnabled && EventsPublished != nil {
		EventsPublished.WithLabelValues(status).Inc()
	}
}
