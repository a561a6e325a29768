package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "task_manager_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "task_manager_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// AI metrics
	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "task_manager_ai_request_duration_seconds",
		Help:    "Duration of AI provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "task_manager_ai_requests_total",
		Help: "Total number of AI provider requests",
	}, []string{"provider", "status"})

	aiFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "task_manager_ai_fallbacks_total",
		Help: "Total number of times a fallback answer replaced the AI",
	}, []string{"feature"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "task_manager_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "task_manager_cache_misses_total",
		Help: "Total number of cache misses",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "task_manager_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	}, []string{"route"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "task_manager_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "task_manager_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	tasksStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "task_manager_tasks",
		Help: "Number of stored tasks",
	})

	messagesStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "task_manager_messages",
		Help: "Number of stored conversation messages",
	})

	aiEnabled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "task_manager_ai_enabled",
		Help: "1 when an AI provider is configured",
	}, []string{"provider"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordAIRequest records an AI provider request
func (m *Metrics) RecordAIRequest(provider, status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
	aiRequestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordFallback records a fallback answer served instead of the AI
func (m *Metrics) RecordFallback(feature string) {
	aiFallbacks.WithLabelValues(feature).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded(route string) {
	rateLimitExceeded.WithLabelValues(route).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetStoredCounts sets the task and message gauges
func (m *Metrics) SetStoredCounts(tasks, messages int) {
	tasksStored.Set(float64(tasks))
	messagesStored.Set(float64(messages))
}

// SetAIEnabled publishes the gateway state
func (m *Metrics) SetAIEnabled(provider string, enabled bool) {
	value := 0.0
	if enabled {
		value = 1
	}
	aiEnabled.WithLabelValues(provider).Set(value)
}

// Instrument records request count and latency per matched route
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeTemplate keeps label cardinality bounded by using the mux path template
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
