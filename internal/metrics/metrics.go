// Package metrics exposes Prometheus instrumentation for the advisory
// workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcome labels (bounded set).
const (
	OutcomeCompleted           = "completed"
	OutcomeCollaboratorFailure = "collaborator_failure"
	OutcomeCancelled           = "cancelled"
	OutcomeError               = "error"
)

var (
	// PhaseDuration tracks wall time spent in each workflow phase.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alpinist_workflow_phase_duration_seconds",
		Help:    "Duration of each workflow phase in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"phase"})

	// ReviewRevisions counts review-gate revision rounds across runs.
	ReviewRevisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alpinist_review_revisions_total",
		Help: "Total review revision rounds requested by the review gate",
	})

	// RiskRevisions counts risk-gate revision rounds across runs.
	RiskRevisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alpinist_risk_revisions_total",
		Help: "Total allocation revision rounds requested by the risk gate",
	})

	// WorkflowRuns counts finished runs by outcome.
	WorkflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpinist_workflow_runs_total",
		Help: "Total workflow runs by outcome",
	}, []string{"outcome"})

	// CollaboratorFailures counts collaborator errors by the phase they hit.
	CollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alpinist_collaborator_failures_total",
		Help: "Total collaborator failures by workflow phase",
	}, []string{"phase"})
)
