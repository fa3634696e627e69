// Package metrics exposes the Prometheus instrumentation for the simulation
// engine and the proposal ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Simulations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudsave_simulations_total",
		Help: "Simulate calls by action type.",
	}, []string{"action"})

	ScenariosGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudsave_scenarios_generated_total",
		Help: "Scenarios produced by action type.",
	}, []string{"action"})

	ResolutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudsave_resolution_failures_total",
		Help: "Resources dropped from a simulation because resolution failed.",
	}, []string{"csp"})

	ProposalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudsave_proposal_transitions_total",
		Help: "Proposal state transitions by target status.",
	}, []string{"status"})
)
