package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics mirrors the in-memory counters for scraping. Each Metrics
// value owns its registry so collectors never clash on the default one.
type promMetrics struct {
	registry    *prometheus.Registry
	responses   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inApp       *prometheus.CounterVec
	clients     *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

func newPromMetrics() *promMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &promMetrics{
		registry: reg,
		responses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unwrap_responses_total",
				Help: "Total number of responses by profile, outcome and status",
			},
			[]string{"profile", "outcome", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unwrap_response_duration_seconds",
				Help:    "Time spent producing a response",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"profile"},
		),
		inApp: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unwrap_in_app_clients_total",
				Help: "Requests from recognised in-app browsers",
			},
			[]string{"app", "platform"},
		),
		clients: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unwrap_clients_total",
				Help: "Served requests by client platform, device, browser and bot flag",
			},
			[]string{"platform", "device", "browser", "bot"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unwrap_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"profile"},
		),
	}
}
