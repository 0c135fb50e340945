package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ribbon_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ribbon_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ribbon_generations_total",
			Help: "Total gift suggestion generations, by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	RefinementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ribbon_refinements_total",
			Help: "Total gift suggestion refinements, by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	EngineLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ribbon_engine_latency_seconds",
			Help:    "Latency of AI engine calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	LockoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ribbon_login_lockouts_total",
			Help: "Total login lockouts imposed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		RefinementsTotal,
		EngineLatency,
		LockoutsTotal,
	)
}
