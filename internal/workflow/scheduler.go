package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/alpinist/internal/analyst"
	"github.com/ajitpratap0/alpinist/internal/judge"
	"github.com/ajitpratap0/alpinist/internal/marketdata"
	"github.com/ajitpratap0/alpinist/internal/metrics"
	"github.com/ajitpratap0/alpinist/internal/portfolio"
	"github.com/ajitpratap0/alpinist/internal/risk"
)

// Config bounds the revision loops. A budget of 0 disables revisions at
// that gate; callers wanting the standard budgets use DefaultConfig.
type Config struct {
	MaxReviewRevisions int
	MaxRiskRevisions   int
	AsOf               time.Time
}

// DefaultConfig allows up to two revision rounds per gate.
func DefaultConfig() Config {
	return Config{MaxReviewRevisions: 2, MaxRiskRevisions: 2}
}

// Deps are the collaborators and services a run needs.
type Deps struct {
	Analyst   judge.AnalystJudge
	Reviewer  judge.ReviewJudge
	Allocator judge.AllocationJudge
	Risk      judge.RiskJudge
	Engine    *risk.Engine
	Stress    *risk.StressRunner
	Provider  marketdata.Provider
	Logger    zerolog.Logger
}

// Scheduler drives the advisory state machine from START to DONE.
type Scheduler struct {
	deps Deps
	cfg  Config
	log  zerolog.Logger
}

// NewScheduler builds a scheduler. Budgets are honored verbatim, so a
// configured zero really means no revision rounds; negatives clamp to 0.
func NewScheduler(deps Deps, cfg Config) *Scheduler {
	if cfg.MaxReviewRevisions < 0 {
		cfg.MaxReviewRevisions = 0
	}
	if cfg.MaxRiskRevisions < 0 {
		cfg.MaxRiskRevisions = 0
	}
	return &Scheduler{
		deps: deps,
		cfg:  cfg,
		log:  deps.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run executes one full advisory workflow over the instrument universe.
// Budget exhaustion at either gate is a normal terminal path; only
// collaborator failures and cancellation return an error.
func (s *Scheduler) Run(ctx context.Context, universe []string) (Result, error) {
	if len(universe) == 0 {
		return Result{}, errors.New("empty instrument universe")
	}

	asOf := s.cfg.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	state := newState(uuid.NewString(), universe)
	log := s.log.With().Str("run_id", state.RunID).Logger()
	log.Info().Strs("universe", universe).Msg("Starting advisory run")

	var (
		assessment  risk.Assessment
		riskVerdict judge.RiskVerdict
	)

	state.transition(PhaseAnalyzing)
	for state.Phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			metrics.WorkflowRuns.WithLabelValues(metrics.OutcomeCancelled).Inc()
			return Result{}, err
		}

		phaseStart := time.Now()
		var next Phase
		var err error

		switch state.Phase {
		case PhaseAnalyzing:
			next, err = s.runAnalysis(ctx, state)
		case PhaseReviewing:
			next, err = s.runReviewGate(ctx, state)
		case PhaseAllocating:
			next, err = s.runAllocation(ctx, state, asOf)
		case PhaseRiskAssessing:
			next, assessment, riskVerdict, err = s.runRiskGate(ctx, state, asOf)
		default:
			err = fmt.Errorf("unexpected phase %s", state.Phase)
		}

		metrics.PhaseDuration.WithLabelValues(string(state.Phase)).Observe(time.Since(phaseStart).Seconds())

		if err != nil {
			var collab *CollaboratorError
			if errors.As(err, &collab) {
				metrics.CollaboratorFailures.WithLabelValues(string(collab.Phase)).Inc()
				metrics.WorkflowRuns.WithLabelValues(metrics.OutcomeCollaboratorFailure).Inc()
				log.Error().Err(err).Str("phase", string(collab.Phase)).Msg("Run failed")
				return Result{
					RunID:       state.RunID,
					Universe:    state.Universe,
					Findings:    state.orderedFindings(),
					Transitions: state.Transitions,
					StartedAt:   state.StartedAt,
					FinishedAt:  time.Now().UTC(),
				}, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				metrics.WorkflowRuns.WithLabelValues(metrics.OutcomeCancelled).Inc()
			} else {
				metrics.WorkflowRuns.WithLabelValues(metrics.OutcomeError).Inc()
			}
			return Result{}, err
		}

		state.transition(next)
	}

	alloc, _ := state.latestAllocation()
	metrics.WorkflowRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	log.Info().
		Int("review_revisions", state.ReviewRevisions).
		Int("risk_revisions", state.RiskRevisions).
		Int("positions", len(alloc.Positions)).
		Msg("Advisory run complete")

	return Result{
		RunID:           state.RunID,
		Universe:        state.Universe,
		Allocation:      alloc,
		Assessment:      assessment,
		RiskVerdict:     riskVerdict,
		Findings:        state.orderedFindings(),
		ReviewFeedback:  state.ReviewFeedback,
		RiskFeedback:    state.RiskFeedback,
		ReviewRevisions: state.ReviewRevisions,
		RiskRevisions:   state.RiskRevisions,
		Transitions:     state.Transitions,
		StartedAt:       state.StartedAt,
		FinishedAt:      time.Now().UTC(),
	}, nil
}

// runAnalysis fans one analyst task out per instrument and installs the
// sanitized findings. A revision round supersedes every finding.
func (s *Scheduler) runAnalysis(ctx context.Context, state *State) (Phase, error) {
	snap := state.snapshot()
	generation := snap.ReviewRevisions

	findings := make([]analyst.Finding, len(snap.Universe))
	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range snap.Universe {
		i, ticker := i, ticker
		g.Go(func() error {
			finding, err := s.deps.Analyst.Analyze(gctx, judge.AnalystRequest{
				Ticker:     ticker,
				Universe:   snap.Universe,
				Feedback:   snap.ReviewFeedback,
				Generation: generation,
			})
			if err != nil {
				return &CollaboratorError{Phase: PhaseAnalyzing, Instrument: ticker, Generation: generation, Err: err}
			}
			finding.Ticker = ticker
			finding.Generation = generation
			findings[i] = finding.Sanitize()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	for i, ticker := range state.Universe {
		if prev, ok := state.Findings[ticker]; ok {
			state.FindingHistory = append(state.FindingHistory, prev)
		}
		state.Findings[ticker] = findings[i]
	}

	s.log.Debug().Int("generation", generation).Int("findings", len(findings)).Msg("Analysis round complete")
	return PhaseReviewing, nil
}

// runReviewGate reviews every finding and either requests a revision round
// or releases the research to allocation. An exhausted budget proceeds with
// the findings as they stand.
func (s *Scheduler) runReviewGate(ctx context.Context, state *State) (Phase, error) {
	snap := state.snapshot()
	generation := snap.ReviewRevisions

	verdicts := make([]judge.ReviewVerdict, len(snap.Universe))
	g, gctx := errgroup.WithContext(ctx)
	for i, ticker := range snap.Universe {
		i, ticker := i, ticker
		finding := snap.Findings[ticker]
		g.Go(func() error {
			verdict, err := s.deps.Reviewer.Review(gctx, finding)
			if err != nil {
				return &CollaboratorError{Phase: PhaseReviewing, Instrument: ticker, Generation: generation, Err: err}
			}
			if !verdict.Decision.Valid() {
				return &CollaboratorError{
					Phase: PhaseReviewing, Instrument: ticker, Generation: generation,
					Err: fmt.Errorf("invalid review decision %q", verdict.Decision),
				}
			}
			verdicts[i] = verdict.Sanitize()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var feedback []string
	for i, verdict := range verdicts {
		if verdict.Decision != judge.DecisionNeedsRevision {
			continue
		}
		note := verdict.Feedback
		if note == "" {
			note = strings.Join(verdict.Issues, "; ")
		}
		feedback = append(feedback, fmt.Sprintf("%s: %s", snap.Universe[i], note))
	}

	if len(feedback) == 0 {
		s.log.Debug().Int("generation", generation).Msg("Review gate passed")
		return PhaseAllocating, nil
	}

	if state.ReviewRevisions >= s.cfg.MaxReviewRevisions {
		s.log.Info().
			Int("revisions", state.ReviewRevisions).
			Int("open_issues", len(feedback)).
			Msg("Review revision budget exhausted, proceeding to allocation")
		return PhaseAllocating, nil
	}

	state.ReviewRevisions++
	state.ReviewFeedback = append(state.ReviewFeedback, feedback...)
	metrics.ReviewRevisions.Inc()
	s.log.Info().
		Int("revision", state.ReviewRevisions).
		Int("flagged", len(feedback)).
		Msg("Review gate requested a revision round")
	return PhaseAnalyzing, nil
}

// runAllocation asks the allocator for weights and normalizes the proposal.
func (s *Scheduler) runAllocation(ctx context.Context, state *State, asOf time.Time) (Phase, error) {
	snap := state.snapshot()
	generation := snap.RiskRevisions

	proposed, err := s.deps.Allocator.Allocate(ctx, judge.AllocationRequest{
		Universe:     snap.Universe,
		Findings:     snap.orderedFindings(),
		RiskFeedback: snap.RiskFeedback,
		Generation:   generation,
	})
	if err != nil {
		return "", &CollaboratorError{Phase: PhaseAllocating, Generation: generation, Err: err}
	}

	proposed.Generation = generation
	proposed.Timestamp = asOf
	validated := portfolio.NewValidator(snap.Universe).Validate(proposed)

	state.Allocations = append(state.Allocations, validated)
	s.log.Debug().
		Int("generation", generation).
		Int("positions", len(validated.Positions)).
		Msg("Allocation accepted")
	return PhaseRiskAssessing, nil
}

// runRiskGate computes the deterministic risk bundle, consults the risk
// judge, and either requests an allocation revision or finishes the run.
func (s *Scheduler) runRiskGate(ctx context.Context, state *State, asOf time.Time) (Phase, risk.Assessment, judge.RiskVerdict, error) {
	snap := state.snapshot()
	alloc, ok := snap.latestAllocation()
	if !ok {
		return "", risk.Assessment{}, judge.RiskVerdict{}, errors.New("risk gate reached without an allocation")
	}
	generation := snap.RiskRevisions

	assessment, err := s.deps.Engine.Assess(ctx, s.deps.Provider, alloc, asOf)
	if err != nil {
		return "", risk.Assessment{}, judge.RiskVerdict{}, fmt.Errorf("risk assessment: %w", err)
	}
	assessment.StressResults, err = s.deps.Stress.Run(ctx, alloc)
	if err != nil {
		return "", risk.Assessment{}, judge.RiskVerdict{}, fmt.Errorf("stress testing: %w", err)
	}

	verdict, err := s.deps.Risk.AssessRisk(ctx, judge.RiskRequest{
		Allocation:    alloc,
		Metrics:       assessment.Metrics,
		StressResults: assessment.StressResults,
	})
	if err != nil {
		return "", risk.Assessment{}, judge.RiskVerdict{},
			&CollaboratorError{Phase: PhaseRiskAssessing, Generation: generation, Err: err}
	}
	if !verdict.Decision.Valid() {
		return "", risk.Assessment{}, judge.RiskVerdict{}, &CollaboratorError{
			Phase: PhaseRiskAssessing, Generation: generation,
			Err: fmt.Errorf("invalid risk decision %q", verdict.Decision),
		}
	}

	if verdict.Decision == judge.DecisionNeedsRevision && state.RiskRevisions < s.cfg.MaxRiskRevisions {
		state.RiskRevisions++
		feedback := verdict.Feedback
		if feedback == "" {
			feedback = strings.Join(verdict.Concerns, "; ")
		}
		state.RiskFeedback = append(state.RiskFeedback, feedback)
		metrics.RiskRevisions.Inc()
		s.log.Info().
			Int("revision", state.RiskRevisions).
			Int("concerns", len(verdict.Concerns)).
			Msg("Risk gate requested an allocation revision")
		return PhaseAllocating, assessment, verdict, nil
	}

	if verdict.Decision == judge.DecisionNeedsRevision {
		s.log.Info().
			Int("revisions", state.RiskRevisions).
			Msg("Risk revision budget exhausted, accepting last allocation")
	} else {
		s.log.Debug().Msg("Risk gate passed")
	}
	return PhaseDone, assessment, verdict, nil
}
