// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ewm"

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

// RequestsCreated counts new participation requests by initial status.
var RequestsCreated = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participation_requests_created_total",
		Help:      "Participation requests created, by initial status",
	},
	[]string{"status"},
)

// RequestsCanceled counts cancellations by the status they left.
var RequestsCanceled = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participation_requests_canceled_total",
		Help:      "Participation requests canceled by their requester, by previous status",
	},
	[]string{"previous_status"},
)

// BatchResolved counts requests resolved through batch status updates.
var BatchResolved = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "participation_requests_resolved_total",
		Help:      "Requests resolved by initiators, by resulting status",
	},
	[]string{"status"},
)

// AdmissionRefusals counts admission operations refused by a business rule.
var AdmissionRefusals = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_refusals_total",
		Help:      "Admission operations refused, by operation and error kind",
	},
	[]string{"operation", "kind"},
)

// AdmissionDuration records how long admission decisions hold the event lock.
var AdmissionDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "admission_duration_seconds",
		Help:      "Duration of admission operations in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"operation"},
)

// StatsFailures counts failed calls to the stats collaborator.
var StatsFailures = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stats_client_failures_total",
		Help:      "Failed calls to the stats service, by call",
	},
	[]string{"call"},
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
