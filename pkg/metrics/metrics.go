package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RunsStarted   prometheus.Counter
	RunsFinalized *prometheus.CounterVec
	PagesTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec

	initOnce sync.Once
)

// Init registers all collectors. Safe to call more than once; registration
// happens only on the first call.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_runs_started_total",
			Help: "Total number of discovery runs started.",
		},
	)

	RunsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_runs_finalized_total",
			Help: "Total number of discovery runs finalized, by terminal status.",
		},
		[]string{"status"},
	)

	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_pages_total",
			Help: "Total number of candidate pages processed, by outcome.",
		},
		[]string{"outcome"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_step_duration_seconds",
			Help:    "Duration of individual pipeline steps.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"step"},
	)
}
