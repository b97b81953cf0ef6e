// Package journey runs the observe-decide-act loop for one simulated user.
// The orchestrator owns no algorithmic content: scoring lives in decision,
// emotional dynamics in session, and stopping rules in termination. It holds
// no mutable state between runs, so one orchestrator can serve concurrent
// journeys as long as each gets its own explorer.
package journey

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/decision"
	"github.com/xkilldash9x/meander-cli/internal/persona"
	"github.com/xkilldash9x/meander-cli/internal/session"
	"github.com/xkilldash9x/meander-cli/internal/termination"
)

// Explorer is the seam between the engine and whatever executes actions: a
// live browser, a recorded fixture, or a test double. The engine never looks
// at page markup; observations are the whole world.
type Explorer interface {
	// Observe returns a structured snapshot of the current page.
	Observe(ctx context.Context) (schemas.Observation, error)
	// Act dispatches one interaction and reports what it did. In-page
	// failures belong in the outcome, not the error: the error channel is
	// for infrastructure breakage only.
	Act(ctx context.Context, req schemas.ActionRequest) (schemas.ActionOutcome, error)
}

// Tunings bundles the engine constants for one run profile.
type Tunings struct {
	Session     session.Tuning         `mapstructure:"session"`
	Decision    decision.Tuning        `mapstructure:"decision"`
	Termination termination.Thresholds `mapstructure:"termination"`
}

// DefaultTunings returns the shipped constants for all three components.
func DefaultTunings() Tunings {
	return Tunings{
		Session:     session.DefaultTuning(),
		Decision:    decision.DefaultTuning(),
		Termination: termination.DefaultThresholds(),
	}
}

// InvariantError wraps a defect escaping the engine's state math. A
// struggling persona never produces one; broken update code does. It is
// surfaced to the caller instead of being folded into the journey result.
type InvariantError struct {
	Step int
	Err  error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("journey: engine invariant violated at step %d: %v", e.Step, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// Friction reporting thresholds. Crossing one from below flags the step.
const (
	frictionConfusion   = 0.6
	frictionFrustration = 0.6
	frictionRetries     = 2
)

// Orchestrator runs journeys. Construct once and reuse; it is immutable
// after New.
type Orchestrator struct {
	log   *zap.Logger
	tun   Tunings
	clock func() time.Time
}

// New builds an orchestrator. A nil logger means silent, a nil clock means
// wall time; tests inject a fixed clock for reproducible traces.
func New(logger *zap.Logger, tun Tunings, clock func() time.Time) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{log: logger, tun: tun, clock: clock}
}

// Run executes one journey to completion and always returns a complete
// result once the configuration is accepted. The context is honored at step
// boundaries only, so a cancelled journey still carries every finished step.
// A non-nil error means either a rejected configuration (nothing ran) or an
// engine defect (*InvariantError).
func (o *Orchestrator) Run(ctx context.Context, profile persona.Profile, cfg schemas.JourneyConfig, exp Explorer) (*schemas.JourneyResult, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, fmt.Errorf("journey: explorer must not be nil")
	}

	dynamics, err := session.NewDynamics(profile.Traits, o.tun.Session)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	policy, err := decision.NewPolicy(profile.Traits, o.tun.Decision, rng)
	if err != nil {
		return nil, err
	}
	goal := decision.NewGoal(cfg.Goal)
	eval, err := termination.NewEvaluator(profile.Traits, o.tun.Termination, goal, cfg.MaxSteps, cfg.MaxTime.Seconds())
	if err != nil {
		return nil, err
	}

	journeyID := uuid.NewSHA1(uuid.NameSpaceURL,
		fmt.Appendf(nil, "%s|%s|%s|%d", profile.Name, cfg.Goal, cfg.StartURL, cfg.RandomSeed)).String()
	log := o.log.With(zap.String("journeyID", journeyID), zap.String("persona", profile.Name))
	log.Info("journey starting",
		zap.String("goal", cfg.Goal),
		zap.String("startURL", cfg.StartURL),
		zap.Int64("seed", cfg.RandomSeed),
		zap.Int("maxSteps", cfg.MaxSteps))

	r := &run{
		log:      log,
		exp:      exp,
		dynamics: dynamics,
		policy:   policy,
		eval:     eval,
		goal:     goal,
		clock:    o.clock,
		budget:   decision.RetryBudget(profile.Traits),
		state:    dynamics.Initial(),
		visited:  make(map[string]int),
		result: &schemas.JourneyResult{
			JourneyID: journeyID,
			Persona:   profile.Name,
			Goal:      cfg.Goal,
			StartURL:  cfg.StartURL,
			Seed:      cfg.RandomSeed,
			Traits:    profile.Traits.Clone(),
			StartedAt: o.clock(),
		},
	}

	var reason schemas.TerminationReason
	for {
		if ctx.Err() != nil {
			log.Warn("journey cancelled at step boundary", zap.Int("steps", len(r.result.Steps)))
			reason = schemas.ReasonBudgetExhausted
			break
		}
		stepReason, done, stepErr := r.step(ctx)
		if stepErr != nil {
			return nil, &InvariantError{Step: len(r.result.Steps), Err: stepErr}
		}
		if done {
			reason = stepReason
			break
		}
	}

	r.state = dynamics.Terminate(r.state)
	r.result.Reason = reason
	r.result.GoalReached = reason.Success()
	r.result.FinalState = r.state.Snapshot()
	r.result.SimDuration = r.state.SimTime
	r.result.FinishedAt = o.clock()

	log.Info("journey finished",
		zap.String("reason", string(reason)),
		zap.Int("steps", len(r.result.Steps)),
		zap.Float64("simSeconds", r.result.SimDuration))
	return r.result, nil
}

// run is the per-journey state of one Run invocation.
type run struct {
	log      *zap.Logger
	exp      Explorer
	dynamics *session.Dynamics
	policy   *decision.Policy
	eval     *termination.Evaluator
	goal     decision.Goal
	clock    func() time.Time
	budget   int

	state   session.State
	visited map[string]int
	prevFP  string
	dwell   float64
	result  *schemas.JourneyResult
}

// step runs one full decision cycle: observe, decide (with retries), apply
// the outcome to the session, evaluate termination, and append the trace
// record. The returned error is always an engine defect.
func (r *run) step(ctx context.Context) (schemas.TerminationReason, bool, error) {
	obs, err := r.exp.Observe(ctx)
	if err != nil {
		// A blind step is a valid signal: the persona sees a dead page and
		// the termination triggers take it from there.
		r.log.Warn("observe failed, treating page as empty", zap.Error(err))
		obs = schemas.Observation{}
	}

	prev := r.state.Snapshot()

	if obs.Interrupt != nil {
		paused, err := r.dynamics.Interrupt(r.state, *obs.Interrupt)
		if err != nil {
			return "", false, err
		}
		resumed, err := r.dynamics.Resume(paused)
		if err != nil {
			return "", false, err
		}
		r.state = resumed
		r.log.Debug("interruption absorbed",
			zap.String("kind", string(obs.Interrupt.Kind)),
			zap.Float64("simSeconds", obs.Interrupt.SimSeconds))
	}

	if obs.Fingerprint != r.prevFP {
		r.dwell = 0
		r.prevFP = obs.Fingerprint
	}

	dec, outcome, retries, stepSim, err := r.decideAndAct(ctx, obs)
	if err != nil {
		return "", false, err
	}

	ev := finalEvent(dec, outcome, obs)
	next, err := r.dynamics.Apply(r.state, ev)
	if err != nil {
		return "", false, err
	}
	r.state = next
	stepSim += ev.Elapsed
	r.dwell += stepSim

	if outcome != nil && outcome.Success && dec.Target != nil && dec.Target.Href != "" {
		r.visited[dec.Target.Href]++
	}

	snap := r.state.Snapshot()
	reason, done := r.eval.Check(obs, snap)
	if !done && dec.Kind == schemas.DecisionAbandon {
		// The persona's own abandonment is terminal: nothing on the page was
		// worth acting on and the retry budget could not change that.
		reason, done = schemas.ReasonNothingActionable, true
	}

	idx := len(r.result.Steps)
	r.result.Steps = append(r.result.Steps, schemas.StepRecord{
		Index:       idx,
		Timestamp:   r.clock(),
		URL:         obs.URL,
		Fingerprint: obs.Fingerprint,
		Decision:    dec,
		Outcome:     outcome,
		Retries:     retries,
		State:       snap,
	})
	r.flagFriction(idx, prev, snap, retries, obs.Fingerprint)

	r.log.Debug("step complete",
		zap.Int("step", idx),
		zap.String("url", obs.URL),
		zap.String("decision", string(dec.Kind)),
		zap.Float64("confidence", dec.Confidence),
		zap.Int("retries", retries),
		zap.Float64("patience", snap.Patience))
	return reason, done, nil
}

// decideAndAct picks an action and dispatches it, burning the retry budget
// on transient failures. Each failed attempt is charged to the session
// before the persona looks again at what is left of the page.
func (r *run) decideAndAct(ctx context.Context, obs schemas.Observation) (schemas.Decision, *schemas.ActionOutcome, int, float64, error) {
	remaining := obs
	retries := 0
	stepSim := 0.0

	for {
		dec := r.policy.Decide(decision.Request{
			Goal:         r.goal,
			Observation:  remaining,
			State:        r.state.Snapshot(),
			DwellSeconds: r.dwell + stepSim,
			Visited:      r.visited,
		})
		if dec.Kind == schemas.DecisionAbandon {
			return dec, nil, retries, stepSim, nil
		}

		out, actErr := r.exp.Act(ctx, actionRequest(dec))
		if actErr != nil {
			r.log.Warn("action dispatch failed", zap.Error(actErr))
			out = schemas.ActionOutcome{Success: false, Error: schemas.ActionErrNavigation}
		}

		if dec.Kind == schemas.DecisionLeave ||
			out.Success || !out.Error.Transient() || retries >= r.budget {
			return dec, &out, retries, stepSim, nil
		}

		// Transient failure with budget left: charge the attempt, drop the
		// dead candidate, look again.
		next, applyErr := r.dynamics.Apply(r.state, session.Event{
			Elapsed:    dec.SimSeconds + latencySec(&out),
			Outcome:    &out,
			Unexpected: true,
			Ambiguity:  1 - clamp01(dec.Confidence),
		})
		if applyErr != nil {
			return dec, nil, retries, stepSim, applyErr
		}
		r.state = next
		stepSim += dec.SimSeconds + latencySec(&out)
		retries++
		remaining = withoutCandidate(remaining, dec.Target.Ref)
	}
}

// flagFriction appends friction points for thresholds this step crossed.
func (r *run) flagFriction(idx int, prev, now schemas.StateSnapshot, retries int, fingerprint string) {
	if prev.Confusion < frictionConfusion && now.Confusion >= frictionConfusion {
		r.result.Friction = append(r.result.Friction, schemas.FrictionPoint{
			StepIndex: idx,
			Kind:      schemas.FrictionConfusionSpike,
			Note:      fmt.Sprintf("confusion reached %.2f", now.Confusion),
		})
	}
	if prev.Frustration < frictionFrustration && now.Frustration >= frictionFrustration {
		r.result.Friction = append(r.result.Friction, schemas.FrictionPoint{
			StepIndex: idx,
			Kind:      schemas.FrictionFrustrationSpike,
			Note:      fmt.Sprintf("frustration reached %.2f", now.Frustration),
		})
	}
	if retries >= frictionRetries {
		r.result.Friction = append(r.result.Friction, schemas.FrictionPoint{
			StepIndex: idx,
			Kind:      schemas.FrictionRetryChurn,
			Note:      fmt.Sprintf("%d retries before settling", retries),
		})
	}
	if fingerprint != "" && r.eval.VisitCount(fingerprint) >= 2 {
		r.result.Friction = append(r.result.Friction, schemas.FrictionPoint{
			StepIndex: idx,
			Kind:      schemas.FrictionRevisit,
			Note:      fmt.Sprintf("visit %d to this page", r.eval.VisitCount(fingerprint)),
		})
	}
}

// actionRequest converts an engage or leave decision into its dispatch form.
func actionRequest(dec schemas.Decision) schemas.ActionRequest {
	req := schemas.ActionRequest{Kind: dec.Action, Text: dec.TypedText}
	if dec.Target != nil {
		req.Ref = dec.Target.Ref
	}
	return req
}

// finalEvent folds the step's concluding decision and outcome into a session
// event.
func finalEvent(dec schemas.Decision, out *schemas.ActionOutcome, obs schemas.Observation) session.Event {
	ev := session.Event{
		Elapsed:    dec.SimSeconds + latencySec(out),
		Outcome:    out,
		Ambiguity:  1 - clamp01(dec.Confidence),
		BestScent:  dec.BestScent,
		ScentKnown: true,
	}

	switch {
	case out == nil:
		// Nothing to act on at all.
		ev.Unexpected = true
	case !out.Success:
		ev.Unexpected = true
	case expectsNavigation(dec) && !out.PageChanged:
		ev.Unexpected = true
	}

	if hasAlert(obs) {
		ev.TrustSignal = -0.5
	} else if obs.GoalSignal {
		ev.TrustSignal = 0.5
	}

	if obs.Title != "" {
		ev.Remember = []string{obs.Title}
	}
	return ev
}

// expectsNavigation reports whether the chosen action should land on a new
// page, so that staying put counts as a surprise.
func expectsNavigation(dec schemas.Decision) bool {
	switch dec.Action {
	case schemas.ActionBack, schemas.ActionNavigate:
		return true
	case schemas.ActionClick:
		return dec.Target != nil && dec.Target.Role == schemas.RoleLink
	default:
		return false
	}
}

func hasAlert(obs schemas.Observation) bool {
	for _, block := range obs.Content {
		if block.Kind == schemas.ContentAlert {
			return true
		}
	}
	return false
}

// withoutCandidate returns the observation minus one candidate, leaving the
// original untouched.
func withoutCandidate(obs schemas.Observation, ref string) schemas.Observation {
	out := obs
	out.Candidates = make([]schemas.CandidateElement, 0, len(obs.Candidates))
	for _, c := range obs.Candidates {
		if c.Ref != ref {
			out.Candidates = append(out.Candidates, c)
		}
	}
	return out
}

func latencySec(out *schemas.ActionOutcome) float64 {
	if out == nil {
		return 0
	}
	return float64(out.LatencyMS) / 1000
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
