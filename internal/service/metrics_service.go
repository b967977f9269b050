package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the appraisal API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	storeDuration   *prometheus.HistogramVec
	storeConflicts  prometheus.Counter
	transitions     *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	completions     prometheus.Counter
	reportRenders   *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	writeCount           uint64
	conflictCount        uint64
	transitionCount      uint64
	completionCount      uint64
}

// NewMetricsService registers the Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_store_duration_seconds",
		Help:    "Duration of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	storeConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_store_conflicts_total",
		Help: "Compare-and-set writes that lost a race and were retried",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_transitions_total",
		Help: "Workflow transitions applied to appraisal records",
	}, []string{"action", "to"})

	guardRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_guard_rejections_total",
		Help: "Workflow actions rejected because the record was in the wrong status",
	}, []string{"action"})

	completions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appraisal_interactions_completed_total",
		Help: "Interaction reviews that collected every required rating",
	})

	reportRenders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_report_renders_total",
		Help: "Appraisal report renders by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio,
		storeDuration, storeConflicts, transitions, guardRejections, completions, reportRenders, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		storeDuration:   storeDuration,
		storeConflicts:  storeConflicts,
		transitions:     transitions,
		guardRejections: guardRejections,
		completions:     completions,
		reportRenders:   reportRenders,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStoreOperation records document store timing.
func (m *MetricsService) ObserveStoreOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if operation != "get" {
		atomic.AddUint64(&m.writeCount, 1)
	}
}

// RecordWriteConflict counts a lost compare-and-set race.
func (m *MetricsService) RecordWriteConflict() {
	if m == nil {
		return
	}
	m.storeConflicts.Inc()
	atomic.AddUint64(&m.conflictCount, 1)
}

// RecordTransition counts an applied workflow action.
func (m *MetricsService) RecordTransition(action, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, to).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// RecordGuardRejection counts an action refused by the workflow guard.
func (m *MetricsService) RecordGuardRejection(action string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(action).Inc()
}

// RecordInteractionCompleted counts a review that just collected its last required rating.
func (m *MetricsService) RecordInteractionCompleted() {
	if m == nil {
		return
	}
	m.completions.Inc()
	atomic.AddUint64(&m.completionCount, 1)
}

// RecordReportRender counts a report render attempt.
func (m *MetricsService) RecordReportRender(outcome string) {
	if m == nil {
		return
	}
	m.reportRenders.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		DocumentWrites:           atomic.LoadUint64(&m.writeCount),
		WriteConflicts:           atomic.LoadUint64(&m.conflictCount),
		Transitions:              atomic.LoadUint64(&m.transitionCount),
		CompletedInteractions:    atomic.LoadUint64(&m.completionCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
