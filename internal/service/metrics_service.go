package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sis-rollover-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the rollover
// engine and the HTTP surface around it.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	rolloverExecutions *prometheus.CounterVec
	rolloverStudents   *prometheus.CounterVec
	rolloverDuration   prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
}

// NewMetricsService registers core Prometheus collectors.
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
		Help:    "Latency for cache operations",
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	rolloverExecutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollover_executions_total",
		Help: "Rollover execute calls grouped by outcome",
	}, []string{"outcome"})

	rolloverStudents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rollover_students_processed_total",
		Help: "Students processed by rollover execution grouped by final status",
	}, []string{"status"})

	rolloverDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rollover_execution_duration_seconds",
		Help:    "Wall-clock duration of rollover executions",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio,
		cacheHits, cacheMisses, rolloverExecutions, rolloverStudents, rolloverDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		rolloverExecutions: rolloverExecutions,
		rolloverStudents:   rolloverStudents,
		rolloverDuration:   rolloverDuration,
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
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRollover records the outcome of one execute call.
func (m *MetricsService) ObserveRollover(result *models.RolloverResult, duration time.Duration) {
	if m == nil || result == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	m.rolloverExecutions.WithLabelValues(outcome).Inc()
	m.rolloverDuration.Observe(duration.Seconds())
	if !result.Success {
		return
	}
	m.rolloverStudents.WithLabelValues(string(models.RolloverPromoted)).Add(float64(result.Promoted))
	m.rolloverStudents.WithLabelValues(string(models.RolloverRetained)).Add(float64(result.Retained))
	m.rolloverStudents.WithLabelValues(string(models.RolloverGraduated)).Add(float64(result.Graduated))
	m.rolloverStudents.WithLabelValues(string(models.RolloverDropped)).Add(float64(result.Dropped))
	m.rolloverStudents.WithLabelValues(string(models.RolloverTransferred)).Add(float64(result.Transferred))
}
