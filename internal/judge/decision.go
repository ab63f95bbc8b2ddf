// Package judge defines the judgment collaborator contracts: the analyst,
// reviewer, allocator, and risk assessor roles that produce findings,
// verdicts, and allocations for the workflow. Implementations are external
// collaborators; everything they return crosses a trust boundary and is
// sanitized here.
package judge

import (
	"fmt"
	"strings"
)

// Decision is a gate verdict.
type Decision string

const (
	DecisionApproved      Decision = "APPROVED"
	DecisionNeedsRevision Decision = "NEEDS_REVISION"
)

var decisionSynonyms = map[string]Decision{
	"APPROVED":       DecisionApproved,
	"APPROVE":        DecisionApproved,
	"ACCEPTED":       DecisionApproved,
	"ACCEPT":         DecisionApproved,
	"OK":             DecisionApproved,
	"PASS":           DecisionApproved,
	"NEEDS_REVISION": DecisionNeedsRevision,
	"NEEDS REVISION": DecisionNeedsRevision,
	"REVISE":         DecisionNeedsRevision,
	"REVISION":       DecisionNeedsRevision,
	"REJECT":         DecisionNeedsRevision,
	"REJECTED":       DecisionNeedsRevision,
	"RESUBMIT":       DecisionNeedsRevision,
	"FAIL":           DecisionNeedsRevision,
}

// ParseDecision maps a raw collaborator decision string onto a Decision.
// Unknown values return an error; callers must treat that as a collaborator
// failure rather than guessing a verdict.
func ParseDecision(raw string) (Decision, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if d, ok := decisionSynonyms[normalized]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unrecognized decision %q", raw)
}

// Valid reports whether d is one of the two known decisions.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionNeedsRevision
}

func (d Decision) String() string { return string(d) }
