// Package metrics exposes Prometheus collectors for the grader service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditJobsTotal            *prometheus.CounterVec
	auditStageDurationSeconds *prometheus.HistogramVec
	auditOverallScore         prometheus.Histogram
	auditEmailsTotal          *prometheus.CounterVec
	auditActiveWorkers        prometheus.Gauge
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_jobs_total",
				Help: "Total number of audit jobs finished, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		auditStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_stage_duration_seconds",
				Help:    "Histogram of pipeline stage latencies, labeled by stage.",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage"},
		)

		auditOverallScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "audit_overall_score",
				Help:    "Distribution of overall scores for completed audits.",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		)

		auditEmailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_emails_total",
				Help: "Total number of report emails attempted, labeled by result.",
			},
			[]string{"result"},
		)

		auditActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_active_workers",
				Help: "Number of workers currently processing an audit.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given outcome.
func ObserveJob(outcome string) {
	auditJobsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	auditStageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveScore records the overall score of a completed audit.
func ObserveScore(score int) {
	auditOverallScore.Observe(float64(score))
}

// ObserveEmail increments the email counter for the given result.
func ObserveEmail(result string) {
	auditEmailsTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	auditActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	auditActiveWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
