package publish

import (
	"roster/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunStarted labels runs admitted by the orchestrator.
const RunStarted = "STARTED"

var (
	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_publish_sessions_total",
			Help: "Sessions processed by publish workers, by booking outcome",
		},
		[]string{"outcome"},
	)
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_publish_runs_total",
			Help: "Publish runs started and finished, by status",
		},
		[]string{"status"},
	)
	bookingsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_publish_bookings_removed_total",
			Help: "Old bookings retired by the removal step, by outcome",
		},
		[]string{"outcome"},
	)
)

func ObserveSession(outcome model.BookingOutcome) {
	sessionsTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveRun counts a run reaching status. Use RunStarted for admission.
func ObserveRun(status string) {
	runsTotal.WithLabelValues(status).Inc()
}

func ObserveRemoval(outcome model.BookingOutcome) {
	bookingsRemoved.WithLabelValues(string(outcome)).Inc()
}
