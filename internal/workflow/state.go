// Package workflow runs the end-to-end advisory pipeline: analyst fan-out,
// the review gate with bounded revision rounds, allocation, and the
// quantitative risk gate, driven as an explicit state machine.
package workflow

import (
	"time"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/judge"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
	"github.com/ajitpratap0/alpinist/internal/risk"
)

// Phase identifies a workflow stage.
type Phase string

const (
	PhaseStart         Phase = "START"
	PhaseAnalyzing     Phase = "ANALYZING"
	PhaseReviewing     Phase = "REVIEWING"
	PhaseAllocating    Phase = "ALLOCATING"
	PhaseRiskAssessing Phase = "RISK_ASSESSING"
	PhaseDone          Phase = "DONE"
)

// Transition is one recorded phase change.
type Transition struct {
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
	At   time.Time `json:"at"`
}

// State is the scheduler's working memory for one run. Phases receive a
// deep-copied snapshot and report deltas back; the scheduler owns the
// authoritative copy.
type State struct {
	RunID    string
	Universe []string

	// Findings holds the latest finding per ticker; superseded findings
	// move to FindingHistory untouched.
	Findings       map[string]analyst.Finding
	FindingHistory []analyst.Finding

	ReviewFeedback []string
	RiskFeedback   []string

	Allocations []portfolio.Allocation

	ReviewRevisions int
	RiskRevisions   int

	Phase       Phase
	Transitions []Transition
	StartedAt   time.Time
}

func newState(runID string, universe []string) *State {
	return &State{
		RunID:     runID,
		Universe:  append([]string(nil), universe...),
		Findings:  make(map[string]analyst.Finding, len(universe)),
		Phase:     PhaseStart,
		StartedAt: time.Now().UTC(),
	}
}

// snapshot returns an independent copy safe to hand to a phase.
func (s *State) snapshot() State {
	out := *s
	out.Universe = append([]string(nil), s.Universe...)
	out.Findings = make(map[string]analyst.Finding, len(s.Findings))
	for k, v := range s.Findings {
		out.Findings[k] = v
	}
	out.FindingHistory = append([]analyst.Finding(nil), s.FindingHistory...)
	out.ReviewFeedback = append([]string(nil), s.ReviewFeedback...)
	out.RiskFeedback = append([]string(nil), s.RiskFeedback...)
	out.Allocations = append([]portfolio.Allocation(nil), s.Allocations...)
	out.Transitions = append([]Transition(nil), s.Transitions...)
	return out
}

// transition records a phase change.
func (s *State) transition(to Phase) {
	s.Transitions = append(s.Transitions, Transition{From: s.Phase, To: to, At: time.Now().UTC()})
	s.Phase = to
}

// latestAllocation returns the most recent allocation, if any.
func (s *State) latestAllocation() (portfolio.Allocation, bool) {
	if len(s.Allocations) == 0 {
		return portfolio.Allocation{}, false
	}
	return s.Allocations[len(s.Allocations)-1], true
}

// orderedFindings returns the latest findings in universe order.
func (s *State) orderedFindings() []analyst.Finding {
	out := make([]analyst.Finding, 0, len(s.Findings))
	for _, ticker := range s.Universe {
		if f, ok := s.Findings[ticker]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Result is the terminal outcome of a run. Allocation and Assessment are
// only meaningful when Run returned no error; a collaborator failure
// surfaces as an error from Run with findings preserved here for
// diagnostics.
type Result struct {
	RunID           string                `json:"run_id"`
	Universe        []string              `json:"universe"`
	Allocation      portfolio.Allocation  `json:"allocation"`
	Assessment      risk.Assessment       `json:"assessment"`
	RiskVerdict     judge.RiskVerdict     `json:"risk_verdict"`
	Findings        []analyst.Finding     `json:"findings"`
	ReviewFeedback  []string              `json:"review_feedback,omitempty"`
	RiskFeedback    []string              `json:"risk_feedback,omitempty"`
	ReviewRevisions int                   `json:"review_revisions"`
	RiskRevisions   int                   `json:"risk_revisions"`
	Transitions     []Transition          `json:"transitions"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}
