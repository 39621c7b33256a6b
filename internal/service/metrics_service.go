package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icdev-br/pic-portal-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	decisionsTotal     *prometheus.CounterVec
	stageTransitions   *prometheus.CounterVec
	certificatesIssued prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
}

// NewMetricsService registers the portal collectors.
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

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_decisions_total",
		Help: "Approval gate decisions recorded, by party and outcome",
	}, []string{"party", "status"})

	stageTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "project_stage_transitions_total",
		Help: "Project stage transitions, by target stage",
	}, []string{"stage"})

	certificatesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Certificates issued for concluded projects",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration,
		requestTotal,
		decisionsTotal,
		stageTransitions,
		certificatesIssued,
		cacheHits,
		cacheMisses,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		decisionsTotal:     decisionsTotal,
		stageTransitions:   stageTransitions,
		certificatesIssued: certificatesIssued,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return promhttp.Handler()
	}
	return s.handler
}

// ObserveRequest records one completed HTTP request.
func (s *MetricsService) ObserveRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// IncDecision records one approval gate decision.
func (s *MetricsService) IncDecision(party models.ApprovalParty, status models.DecisionStatus) {
	if s == nil {
		return
	}
	s.decisionsTotal.WithLabelValues(string(party), string(status)).Inc()
}

// IncStageTransition records a project arriving at a stage.
func (s *MetricsService) IncStageTransition(stage models.Stage) {
	if s == nil {
		return
	}
	s.stageTransitions.WithLabelValues(string(stage)).Inc()
}

// IncCertificateIssued records one certificate issue.
func (s *MetricsService) IncCertificateIssued() {
	if s == nil {
		return
	}
	s.certificatesIssued.Inc()
}

// IncCacheHit records a cache hit.
func (s *MetricsService) IncCacheHit() {
	if s == nil {
		return
	}
	s.cacheHits.Inc()
}

// IncCacheMiss records a cache miss.
func (s *MetricsService) IncCacheMiss() {
	if s == nil {
		return
	}
	s.cacheMisses.Inc()
}
