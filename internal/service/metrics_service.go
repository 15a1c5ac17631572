package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the pipeline and
// the HTTP surface.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runsTotal           *prometheus.CounterVec
	runDuration         prometheus.Histogram
	occurrencesExpanded prometheus.Counter
	expansionFailures   prometheus.Counter
	commandsInserted    prometheus.Counter
	commandsUpdated     prometheus.Counter
	commandsFrozen      prometheus.Counter
	syncFailures        prometheus.Counter
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

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dcv_sync_runs_total",
		Help: "Total pipeline runs by final status",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dcv_sync_run_duration_seconds",
		Help:    "Duration of pipeline runs",
		Buckets: prometheus.DefBuckets,
	})

	occurrencesExpanded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_occurrences_expanded_total",
		Help: "Total occurrence dates expanded",
	})

	expansionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_expansion_failures_total",
		Help: "Total occurrence dates that failed to persist",
	})

	commandsInserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_commands_inserted_total",
		Help: "Total setpoint commands inserted into the BAS queue",
	})

	commandsUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_commands_updated_total",
		Help: "Total undispatched setpoint commands updated in place",
	})

	commandsFrozen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_commands_frozen_skips_total",
		Help: "Total writes skipped because the command was already dispatched",
	})

	syncFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_sync_failures_total",
		Help: "Total zone/occurrence triples that failed to synchronize",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, runDuration,
		occurrencesExpanded, expansionFailures, commandsInserted, commandsUpdated,
		commandsFrozen, syncFailures, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		runsTotal:           runsTotal,
		runDuration:         runDuration,
		occurrencesExpanded: occurrencesExpanded,
		expansionFailures:   expansionFailures,
		commandsInserted:    commandsInserted,
		commandsUpdated:     commandsUpdated,
		commandsFrozen:      commandsFrozen,
		syncFailures:        syncFailures,
	}
}

// Handler returns the Prometheus scrape handler.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": httpStatusLabel(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// ObserveRun records one finished pipeline run.
func (s *MetricsService) ObserveRun(status string, duration time.Duration) {
	if s == nil {
		return
	}
	s.runsTotal.WithLabelValues(status).Inc()
	s.runDuration.Observe(duration.Seconds())
}

// IncOccurrencesExpanded counts expanded dates.
func (s *MetricsService) IncOccurrencesExpanded() {
	if s != nil {
		s.occurrencesExpanded.Inc()
	}
}

// IncExpansionFailures counts dates that failed to persist.
func (s *MetricsService) IncExpansionFailures() {
	if s != nil {
		s.expansionFailures.Inc()
	}
}

// IncCommandsInserted counts new queue rows.
func (s *MetricsService) IncCommandsInserted() {
	if s != nil {
		s.commandsInserted.Inc()
	}
}

// IncCommandsUpdated counts in-place command updates.
func (s *MetricsService) IncCommandsUpdated() {
	if s != nil {
		s.commandsUpdated.Inc()
	}
}

// IncCommandsFrozen counts dispatched-command no-ops. A growing rate here
// means in-flight commands are going stale relative to the schedule.
func (s *MetricsService) IncCommandsFrozen() {
	if s != nil {
		s.commandsFrozen.Inc()
	}
}

// IncSyncFailures counts failed zone/occurrence triples.
func (s *MetricsService) IncSyncFailures() {
	if s != nil {
		s.syncFailures.Inc()
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
