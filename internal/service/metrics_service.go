package service

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/pkg/jobs"
)

// Generation phases timed by MetricsService.ObservePhase.
const (
	phaseLoad        = "load"
	phaseSolve       = "solve"
	phaseMaterialize = "materialize"
)

// MetricsService owns a private Prometheus registry covering HTTP traffic, cache lookups and
// schedule generation jobs.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheOps     *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec

	jobsTotal     *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	queueDepth    *prometheus.GaugeVec
	jobDuration   prometheus.Histogram
	phaseDuration *prometheus.HistogramVec
	lastHardScore prometheus.Gauge
	lastSoftScore prometheus.Gauge
	lastComplete  prometheus.Gauge
}

// NewMetricsService registers every collector, including the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by cache, operation and result",
		}, []string{"cache", "op", "result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_seconds",
			Help:    "Latency of cache operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"cache", "op"}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_generation_jobs_total",
			Help: "Generation jobs by final status",
		}, []string{"status"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_generation_jobs_running",
			Help: "Generation jobs currently running",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedule_generation_queue_depth",
			Help: "Generation jobs waiting in the queue by state",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_generation_duration_seconds",
			Help:    "Wall clock time of finished generation jobs",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schedule_generation_phase_seconds",
			Help:    "Time spent per generation phase",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 300},
		}, []string{"phase"}),
		lastHardScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_generation_last_hard_score",
			Help: "Hard score of the most recently completed job",
		}),
		lastSoftScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_generation_last_soft_score",
			Help: "Soft score of the most recently completed job",
		}),
		lastComplete: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_generation_last_completion_ratio",
			Help: "Share of courses fully placed by the most recently completed job",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration, m.requestTotal,
		m.cacheOps, m.cacheLatency,
		m.jobsTotal, m.jobsRunning, m.queueDepth, m.jobDuration, m.phaseDuration,
		m.lastHardScore, m.lastSoftScore, m.lastComplete,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheLookup counts a cache read as a hit or a miss.
func (m *MetricsService) RecordCacheLookup(key string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	name := cacheName(key)
	m.cacheOps.WithLabelValues(name, "get", result).Inc()
	m.cacheLatency.WithLabelValues(name, "get").Observe(duration.Seconds())
}

// RecordCacheWrite counts a cache write.
func (m *MetricsService) RecordCacheWrite(key string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	name := cacheName(key)
	m.cacheOps.WithLabelValues(name, "set", result).Inc()
	m.cacheLatency.WithLabelValues(name, "set").Observe(duration.Seconds())
}

// ObservePhase times one phase of a generation run.
func (m *MetricsService) ObservePhase(phase string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// ObserveQueue publishes the generation queue backlog.
func (m *MetricsService) ObserveQueue(stats jobs.Stats) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	m.queueDepth.WithLabelValues("retrying").Set(float64(stats.Retrying))
}

// JobStarted marks a generation job as running.
func (m *MetricsService) JobStarted() {
	if m == nil {
		return
	}
	m.jobsRunning.Inc()
}

// JobFinished records a job leaving RUNNING with its terminal status.
func (m *MetricsService) JobFinished(status models.JobStatus, duration time.Duration, result *models.GenerationResult) {
	if m == nil {
		return
	}
	m.jobsRunning.Dec()
	m.jobsTotal.WithLabelValues(string(status)).Inc()
	m.jobDuration.Observe(duration.Seconds())
	if result != nil {
		m.lastHardScore.Set(float64(result.HardScore))
		m.lastSoftScore.Set(float64(result.SoftScore))
		m.lastComplete.Set(result.CompletionPercentage / 100)
	}
}

// cacheName maps a cache key to a bounded label: "export" for job exports, "configuration" for the
// active configuration and "other" for anything else.
func cacheName(key string) string {
	switch {
	case strings.HasSuffix(key, ":export"):
		return "export"
	case strings.HasPrefix(key, "scheduler:configuration:"):
		return "configuration"
	default:
		return "other"
	}
}
