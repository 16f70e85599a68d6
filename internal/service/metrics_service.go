package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// allocation workflows.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	finalizeDuration prometheus.Observer
	finalizeTotal    *prometheus.CounterVec
	assignedTotal    prometheus.Counter
	unassignedTotal  prometheus.Counter
	submissionsTotal *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
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

	finalizeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cbcs_finalize_duration_seconds",
		Help:    "Duration of cycle finalization runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	finalizeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cbcs_finalize_total",
		Help: "Finalization runs by outcome",
	}, []string{"outcome"})

	assignedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbcs_students_assigned_total",
		Help: "Students placed into a section by finalization",
	})

	unassignedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cbcs_students_unassigned_total",
		Help: "Students left without a seat by finalization",
	})

	submissionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cbcs_submissions_total",
		Help: "Preference submissions by outcome",
	}, []string{"outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, finalizeDuration, finalizeTotal, assignedTotal, unassignedTotal, submissionsTotal, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		finalizeDuration: finalizeDuration,
		finalizeTotal:    finalizeTotal,
		assignedTotal:    assignedTotal,
		unassignedTotal:  unassignedTotal,
		submissionsTotal: submissionsTotal,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
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
}

// ObserveFinalization records a finalization run with its placement counts.
func (m *MetricsService) ObserveFinalization(duration time.Duration, assigned, unassigned int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.finalizeDuration.Observe(duration.Seconds())
	m.finalizeTotal.WithLabelValues(outcome).Inc()
	if err == nil {
		m.assignedTotal.Add(float64(assigned))
		m.unassignedTotal.Add(float64(unassigned))
	}
}

// ObserveSubmission counts a preference submission attempt by outcome.
func (m *MetricsService) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
