// Package metrics holds the robotd Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReportsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "robofleet_reports_received_total",
		Help: "Status reports accepted off the wire, by reported status.",
	}, []string{"status"})

	ReportsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robofleet_reports_dropped_total",
		Help: "Malformed reports dropped without processing.",
	})

	AlertsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "robofleet_alerts_emitted_total",
		Help: "Failure alerts emitted to operator channels.",
	})

	RecomputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "robofleet_aggregate_recompute_seconds",
		Help:    "Time to recompute and persist a robot's aggregate status.",
		Buckets: prometheus.DefBuckets,
	})
)

// Register mounts the Prometheus handler in the provided mux.
func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
