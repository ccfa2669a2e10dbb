package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements DispatchMetrics using Prometheus collectors,
// mirroring bubblyui's pkg/bubbly/monitoring.PrometheusMetrics. All metrics
// are prefixed with "circuits_".
type PrometheusMetrics struct {
	queueDepth      prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	handlerInvokes  *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	taskCount       prometheus.Gauge
	errors          *prometheus.CounterVec
	tickDuration    prometheus.Histogram
}

// NewPrometheusMetrics creates and registers every collector against reg.
// Registration happens immediately and panics on failure (e.g. a duplicate
// registration), the same fail-fast choice the teacher documents for its
// own NewPrometheusMetrics.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		queueDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "circuits_queue_depth",
			Help:    "Number of events drained per dispatch cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circuits_cache_hits_total",
			Help: "Handler-resolution cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circuits_cache_misses_total",
			Help: "Handler-resolution cache misses.",
		}),
		handlerInvokes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circuits_handler_invocations_total",
			Help: "Handler invocations by event name.",
		}, []string{"event"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "circuits_handler_duration_seconds",
			Help:    "Handler invocation duration by event name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		taskCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "circuits_tasks",
			Help: "Live suspended tasks after the last scheduler pass.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "circuits_errors_total",
			Help: "Error events synthesized by event name.",
		}, []string{"event"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "circuits_tick_duration_seconds",
			Help:    "Duration of one Manager.Tick call.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.queueDepth, m.cacheHits, m.cacheMisses,
		m.handlerInvokes, m.handlerDuration, m.taskCount,
		m.errors, m.tickDuration,
	)
	return m
}

func (m *PrometheusMetrics) RecordQueueDepth(depth int) { m.queueDepth.Observe(float64(depth)) }
func (m *PrometheusMetrics) RecordCacheHit()            { m.cacheHits.Inc() }
func (m *PrometheusMetrics) RecordCacheMiss()           { m.cacheMisses.Inc() }

func (m *PrometheusMetrics) RecordHandlerInvocation(eventName string, duration time.Duration) {
	m.handlerInvokes.WithLabelValues(eventName).Inc()
	m.handlerDuration.WithLabelValues(eventName).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordTaskCount(count int) { m.taskCount.Set(float64(count)) }
func (m *PrometheusMetrics) RecordError(eventName string) {
	m.errors.WithLabelValues(eventName).Inc()
}
func (m *PrometheusMetrics) RecordTickDuration(duration time.Duration) {
	m.tickDuration.Observe(duration.Seconds())
}
