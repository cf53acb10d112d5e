package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend client Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Name:      "backend_requests_total",
			Help:      "Total number of requests sent to the RAG backend",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, transport, http_status, timeout, decode
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragdesk",
			Name:      "backend_request_duration_seconds",
			Help:      "RAG backend request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"endpoint"},
	)

	PollFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Name:      "poll_failures_total",
			Help:      "Polls that degraded or kept stale state",
		},
		[]string{"monitor"},
	)

	QueryResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Name:      "query_results_total",
			Help:      "Query submissions by result kind and path",
		},
		[]string{"kind", "path"}, // path: primary, fallback, none
	)

	UploadOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdesk",
			Name:      "upload_outcomes_total",
			Help:      "Upload submissions by mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: ok, rejected, timeout, error
	)
)

var registerBackendOnce sync.Once

// RegisterBackendMetrics registers the backend client metrics with the default
// registry. Safe to call more than once.
func RegisterBackendMetrics() {
	registerBackendOnce.Do(func() {
		prometheus.MustRegister(BackendRequestsTotal)
		prometheus.MustRegister(BackendRequestDuration)
		prometheus.MustRegister(PollFailuresTotal)
		prometheus.MustRegister(QueryResultsTotal)
		prometheus.MustRegister(UploadOutcomesTotal)
	})
}
