package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintenance_actions_total",
			Help: "Total number of maintenance actions by action name and outcome",
		},
		[]string{"action", "outcome"},
	)

	maintenanceActionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maintenance_action_duration_seconds",
			Help:    "Maintenance action duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"action"},
	)
)

// ObserveMaintenanceAction records one completed maintenance action.
func ObserveMaintenanceAction(action, outcome string, duration time.Duration) {
	maintenanceActionsTotal.WithLabelValues(action, outcome).Inc()
	maintenanceActionDuration.WithLabelValues(action).Observe(duration.Seconds())
}
