package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a JSON-friendly digest of the collectors.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ViewerPagesRendered      uint64    `json:"viewer_pages_rendered"`
	ViewerActiveSessions     int64     `json:"viewer_active_sessions"`
	UploadsTotal             uint64    `json:"uploads_total"`
	UploadFailures           uint64    `json:"upload_failures"`
	CleanupDropped           uint64    `json:"cleanup_dropped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the Prometheus registry and keeps running totals for the summary endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	pagesRendered   prometheus.Counter
	pageBytes       prometheus.Histogram
	loadDuration    *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
	uploads         *prometheus.CounterVec
	cleanupDropped  *prometheus.CounterVec

	cacheHitCount        atomic.Uint64
	cacheMissCount       atomic.Uint64
	requestCount         atomic.Uint64
	requestDurationTotal atomic.Uint64
	dbQueryCount         atomic.Uint64
	dbQueryDurationTotal atomic.Uint64
	pageCount            atomic.Uint64
	sessionCount         atomic.Int64
	uploadCount          atomic.Uint64
	uploadFailureCount   atomic.Uint64
	cleanupDropCount     atomic.Uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		pagesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viewer_pages_rendered_total",
			Help: "Pages rasterized by viewer sessions",
		}),
		pageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "viewer_page_png_bytes",
			Help:    "Encoded size of rendered pages",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "viewer_load_duration_seconds",
			Help:    "Time from load start to its outcome",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "viewer_active_sessions",
			Help: "Open viewer sessions",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_uploads_total",
			Help: "Upload attempts by outcome",
		}, []string{"outcome"}),
		cleanupDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanup_jobs_dropped_total",
			Help: "Cleanup jobs abandoned after exhausting retries",
		}, []string{"type"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency,
		m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses, m.dbQueryDuration,
		m.pagesRendered, m.pageBytes, m.loadDuration, m.activeSessions, m.uploads, m.cleanupDropped, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	m.requestCount.Add(1)
	m.requestDurationTotal.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a hit or miss and refreshes the ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		m.cacheHitCount.Add(1)
	} else {
		m.cacheMisses.Inc()
		m.cacheMissCount.Add(1)
	}
	hits := m.cacheHitCount.Load()
	total := hits + m.cacheMissCount.Load()
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueryCount.Add(1)
	m.dbQueryDurationTotal.Add(uint64(duration.Nanoseconds()))
}

// ObservePageRendered counts one rasterized page of encodedBytes.
func (m *MetricsService) ObservePageRendered(encodedBytes int) {
	if m == nil {
		return
	}
	m.pagesRendered.Inc()
	m.pageBytes.Observe(float64(encodedBytes))
	m.pageCount.Add(1)
}

// ObserveViewerLoad records how long a load took to reach outcome.
func (m *MetricsService) ObserveViewerLoad(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetActiveViewerSessions publishes the open session count.
func (m *MetricsService) SetActiveViewerSessions(n int64) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
	m.sessionCount.Store(n)
}

// RecordUpload counts an upload attempt.
func (m *MetricsService) RecordUpload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	m.uploadCount.Add(1)
	if outcome != "success" {
		m.uploadFailureCount.Add(1)
	}
}

// RecordCleanupDropped counts a cleanup job given up on.
func (m *MetricsService) RecordCleanupDropped(jobType string) {
	if m == nil {
		return
	}
	m.cleanupDropped.WithLabelValues(jobType).Inc()
	m.cleanupDropCount.Add(1)
}

// Snapshot aggregates the running totals.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := m.cacheHitCount.Load()
	misses := m.cacheMissCount.Load()
	requests := m.requestCount.Load()
	dbCount := m.dbQueryCount.Load()

	snap := MetricsSnapshot{
		RequestsTotal:        requests,
		CacheHits:            hits,
		CacheMisses:          misses,
		DBQueryCount:         dbCount,
		ViewerPagesRendered:  m.pageCount.Load(),
		ViewerActiveSessions: m.sessionCount.Load(),
		UploadsTotal:         m.uploadCount.Load(),
		UploadFailures:       m.uploadFailureCount.Load(),
		CleanupDropped:       m.cleanupDropCount.Load(),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snap.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(m.requestDurationTotal.Load()) / float64(requests) / float64(time.Millisecond)
	}
	if dbCount > 0 {
		snap.AverageDBQueryDurationMs = float64(m.dbQueryDurationTotal.Load()) / float64(dbCount) / float64(time.Millisecond)
	}
	return snap
}
