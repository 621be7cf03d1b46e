package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// funnelTransitions counts handled events by origin state, action kind and
	// result (accepted, rejected, error). Action kinds come from a closed set.
	funnelTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_transitions_total",
			Help: "Total number of funnel events by state, action and result.",
		},
		[]string{"from", "action", "result"},
	)

	// leadDispatches counts delivery attempts by sink and outcome
	// (success, failure, logged_only).
	leadDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_lead_dispatch_total",
			Help: "Total number of lead delivery attempts by sink and outcome.",
		},
		[]string{"sink", "outcome"},
	)

	leadDispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_lead_dispatch_duration_seconds",
			Help:    "Duration of lead delivery attempts in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(funnelTransitions, leadDispatches, leadDispatchLatency)
}
