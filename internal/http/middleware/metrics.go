// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the funnel API. Labels are
// kept bounded: route is the registered Gin pattern (never the raw URL, which
// would carry chat identities), and group folds routes into the funnel's
// surfaces so dashboards can split bot traffic from operator traffic.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Route groups used as metric labels and in access logs.
const (
	GroupEvents    = "events"
	GroupReminders = "reminders"
	GroupProfiles  = "profiles"
	GroupAdmin     = "admin"
	GroupOps       = "ops"
	GroupOther     = "other"
	GroupUnmatched = "unmatched"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_http_request_duration_seconds",
			Help:    "HTTP request latency by route group.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"group"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "funnel_http_requests_inflight",
			Help: "Requests currently being served, by route group.",
		},
		[]string{"group"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight)
}

// RouteGroup maps a registered route pattern onto one of the Group*
// constants. An empty route (no match) is GroupUnmatched.
func RouteGroup(route string) string {
	if route == "" {
		return GroupUnmatched
	}
	for _, seg := range strings.Split(strings.Trim(route, "/"), "/") {
		switch seg {
		case "events":
			return GroupEvents
		case "reminders":
			return GroupReminders
		case "admin":
			return GroupAdmin
		case "profiles":
			return GroupProfiles
		case "health", "metrics", "swagger":
			return GroupOps
		}
	}
	return GroupOther
}

// Metrics counts requests and observes latency. Requests that match no route
// are labelled "unmatched" rather than with their raw path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// FullPath is already resolved here; 404s have none.
		route := c.FullPath()
		group := RouteGroup(route)
		inflight := httpInflight.WithLabelValues(group)
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		if route == "" {
			route = GroupUnmatched
		}
		httpReqs.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(group).Observe(time.Since(start).Seconds())
	}
}
