package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the prometheus registry and the collectors the
// API exposes under /metrics.
type MetricsService struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	rosterCacheHits   prometheus.Counter
	rosterCacheMisses prometheus.Counter

	fanOutWrites   *prometheus.CounterVec
	fanOutDuration prometheus.Histogram

	conflictChecks prometheus.Counter
	conflictsFound prometheus.Counter
}

// NewMetricsService registers all collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		rosterCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_cache_hits_total",
			Help: "Roster profile cache hits.",
		}),
		rosterCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_cache_misses_total",
			Help: "Roster profile cache misses.",
		}),
		fanOutWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rename_fanout_writes_total",
			Help: "Membership rewrites performed during class renames, by outcome.",
		}, []string{"outcome"}),
		fanOutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rename_fanout_duration_seconds",
			Help:    "Wall time of a full rename fan-out pass.",
			Buckets: prometheus.DefBuckets,
		}),
		conflictChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conflict_checks_total",
			Help: "Schedule conflict detection runs.",
		}),
		conflictsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conflicts_found_total",
			Help: "Advisory conflicts reported to callers.",
		}),
	}

	m.registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.rosterCacheHits,
		m.rosterCacheMisses,
		m.fanOutWrites,
		m.fanOutDuration,
		m.conflictChecks,
		m.conflictsFound,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "goroutines_current",
			Help: "Current number of goroutines.",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveRosterCache records a profile cache lookup outcome.
func (m *MetricsService) ObserveRosterCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.rosterCacheHits.Inc()
	} else {
		m.rosterCacheMisses.Inc()
	}
}

// ObserveFanOut records the outcome of a rename fan-out pass.
func (m *MetricsService) ObserveFanOut(updated, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.fanOutWrites.WithLabelValues("updated").Add(float64(updated))
	m.fanOutWrites.WithLabelValues("failed").Add(float64(failed))
	m.fanOutDuration.Observe(duration.Seconds())
}

// ObserveConflictCheck records one detection run and how many
// conflicts it surfaced.
func (m *MetricsService) ObserveConflictCheck(found int) {
	if m == nil {
		return
	}
	m.conflictChecks.Inc()
	m.conflictsFound.Add(float64(found))
}
