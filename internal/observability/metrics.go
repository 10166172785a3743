package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	adminRequestsTotal    *prometheus.CounterVec
	adminLatencySeconds   *prometheus.HistogramVec
	adminErrorsTotal      *prometheus.CounterVec
	reportsBuiltTotal     *prometheus.CounterVec
	accessDatesFixedTotal *prometheus.CounterVec
	eventsDispatchedTotal *prometheus.CounterVec
	stepsCompletedTotal   *prometheus.CounterVec
	rateLimitedTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		reportsBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_reports_built_total",
			Help: "Course evidence reports assembled, by output format.",
		}, []string{"format"})

		accessDatesFixedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_access_dates_corrected_total",
			Help: "Access-from dates rewritten to the registration date, by repair scope.",
		}, []string{"scope"})

		eventsDispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_events_dispatched_total",
			Help: "Host events dispatched to handlers, by kind and outcome.",
		}, []string{"kind", "outcome"})

		stepsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_steps_completed_total",
			Help: "Lessons and topics marked complete, by step type and source.",
		}, []string{"step_type", "source"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by route scope.",
		}, []string{"scope"})

		prometheus.MustRegister(
			adminRequestsTotal,
			adminLatencySeconds,
			adminErrorsTotal,
			reportsBuiltTotal,
			accessDatesFixedTotal,
			eventsDispatchedTotal,
			stepsCompletedTotal,
			rateLimitedTotal,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ReportsBuilt exposes the counter of assembled reports.
func ReportsBuilt() *prometheus.CounterVec {
	RegisterMetrics()
	return reportsBuiltTotal
}

// AccessDatesCorrected exposes the counter of repaired access dates.
func AccessDatesCorrected() *prometheus.CounterVec {
	RegisterMetrics()
	return accessDatesFixedTotal
}

// EventsDispatched exposes the counter of dispatched host events.
func EventsDispatched() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsDispatchedTotal
}

// StepsCompleted exposes the counter of completed steps.
func StepsCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return stepsCompletedTotal
}

// RateLimited exposes the counter of throttled requests.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}
