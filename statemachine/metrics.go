package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels.
var (
	// transitionsTotal tracks committed transitions.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of committed state transitions by machine, from_state, to_state, and cause",
	}, []string{"machine", "from_state", "to_state", "cause"})

	// transitionsRejectedTotal tracks transition attempts that were refused.
	transitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_rejected_total",
		Help: "Total number of rejected transition attempts by machine and cause",
	}, []string{"machine", "cause"})

	// conditionErrorsTotal tracks conditions that failed to evaluate.
	conditionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_condition_errors_total",
		Help: "Total number of condition evaluation errors by machine and state",
	}, []string{"machine", "state"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}
