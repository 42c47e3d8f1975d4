package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the ingestion pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	ingestionTotal  *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	navDepth        prometheus.Histogram
	pendingQueue    prometheus.Gauge
}

// NewMetricsService registers the collectors.
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

	ingestionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestions_total",
		Help: "Submission outcomes by status",
	}, []string{"status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_cache_hits_total",
		Help: "Navigation children cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nav_cache_misses_total",
		Help: "Navigation children cache misses",
	})

	navDepth := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nav_path_depth",
		Help:    "Depth of navigation paths at render time",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
	})

	pendingQueue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ingestions_pending",
		Help: "Ingestion records awaiting review",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ingestionTotal, cacheHits, cacheMisses, navDepth, pendingQueue, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		ingestionTotal:  ingestionTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		navDepth:        navDepth,
		pendingQueue:    pendingQueue,
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
func (m *MetricsService) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveIngestion counts one submission outcome.
func (m *MetricsService) ObserveIngestion(status string) {
	if m == nil {
		return
	}
	m.ingestionTotal.WithLabelValues(status).Inc()
}

// ObserveNavCache counts a children cache lookup.
func (m *MetricsService) ObserveNavCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveNavDepth records the depth of a rendered path.
func (m *MetricsService) ObserveNavDepth(depth int) {
	if m == nil {
		return
	}
	m.navDepth.Observe(float64(depth))
}

// SetPendingQueue updates the review queue gauge.
func (m *MetricsService) SetPendingQueue(count int64) {
	if m == nil {
		return
	}
	m.pendingQueue.Set(float64(count))
}
