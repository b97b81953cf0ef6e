package schemas

import (
	"fmt"
	"time"
)

// -- Journey Configuration --

// DefaultMaxSteps bounds a journey when the caller does not set a budget.
const DefaultMaxSteps = 20

// JourneyConfig is everything needed to launch one simulated journey.
type JourneyConfig struct {
	// Persona names a built-in or stored template. Ignored when Traits is a
	// complete vector supplied directly.
	Persona string `json:"persona"`
	// CustomTraits overrides individual template values before resolution.
	CustomTraits map[TraitID]float64 `json:"custom_traits,omitempty"`
	// Goal is the natural-language objective, e.g. "find the pricing page".
	Goal     string `json:"goal"`
	StartURL string `json:"start_url"`
	// MaxSteps caps decision cycles. Zero means DefaultMaxSteps.
	MaxSteps int `json:"max_steps,omitempty"`
	// MaxTime caps simulated time, not wall clock. Zero means no time budget.
	MaxTime time.Duration `json:"max_time,omitempty"`
	// RandomSeed makes the run reproducible. The launcher must set it; the
	// engine never falls back to ambient entropy.
	RandomSeed int64 `json:"random_seed"`
}

// ApplyDefaults fills unset budget fields.
func (c *JourneyConfig) ApplyDefaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
}

// Validate reports the first configuration problem, if any.
func (c JourneyConfig) Validate() error {
	if c.Goal == "" {
		return fmt.Errorf("journey config: goal must not be empty")
	}
	if c.StartURL == "" {
		return fmt.Errorf("journey config: start URL must not be empty")
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("journey config: max steps must not be negative, got %d", c.MaxSteps)
	}
	if c.MaxTime < 0 {
		return fmt.Errorf("journey config: max time must not be negative, got %s", c.MaxTime)
	}
	return nil
}

// -- Decisions --

// DecisionKind is the shape of a single decision outcome.
type DecisionKind string

const (
	// DecisionEngage selects a candidate element and an action on it.
	DecisionEngage DecisionKind = "engage"
	// DecisionLeave abandons the current page for a better patch (back or
	// re-navigate) without abandoning the journey.
	DecisionLeave DecisionKind = "leave"
	// DecisionAbandon gives up on the journey: nothing observable is worth
	// acting on. The orchestrator records it as the terminal outcome.
	DecisionAbandon DecisionKind = "abandon"
)

// ScoredCandidate pairs a candidate with its final information-scent score,
// recorded in the trace so selections can be audited.
type ScoredCandidate struct {
	Ref   string  `json:"ref"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Decision is one decision outcome: what to do next, how sure the persona
// is, and the internal monologue explaining it.
type Decision struct {
	Kind   DecisionKind `json:"kind"`
	Action ActionKind   `json:"action,omitempty"`
	// Target is set for engage decisions.
	Target *CandidateElement `json:"target,omitempty"`
	// TypedText is set when Action is ActionType.
	TypedText  string  `json:"typed_text,omitempty"`
	Confidence float64 `json:"confidence"`
	// BestScent is the strongest pre-noise information scent on the page,
	// before novelty bonuses and selection noise. The session reads it to
	// charge patience on pages that offer nothing promising.
	BestScent float64 `json:"best_scent"`
	// Scores is the ranked scent scoring that produced the choice.
	Scores    []ScoredCandidate `json:"scores,omitempty"`
	Monologue string            `json:"monologue"`
	// SimSeconds is the simulated time the decision consumed (reading,
	// scanning, hesitating).
	SimSeconds float64 `json:"sim_seconds"`
}

// -- Session State Snapshots --

// SessionPhase is the lifecycle phase of a journey session.
type SessionPhase string

const (
	PhaseActive     SessionPhase = "active"
	PhasePaused     SessionPhase = "paused"
	PhaseTerminated SessionPhase = "terminated"
)

// StateSnapshot is the emotional/cognitive state captured after a step.
type StateSnapshot struct {
	Phase       SessionPhase `json:"phase"`
	Patience    float64      `json:"patience"`
	Confusion   float64      `json:"confusion"`
	Frustration float64      `json:"frustration"`
	Trust       float64      `json:"trust"`
	// SimTime is total simulated seconds elapsed in the session.
	SimTime float64 `json:"sim_time_sec"`
	// ConfusionElevatedFor is how many consecutive simulated seconds
	// confusion has stayed above the elevated threshold.
	ConfusionElevatedFor float64 `json:"confusion_elevated_for_sec,omitempty"`
}

// -- Journey Results --

// TerminationReason is the single reason a journey ended.
type TerminationReason string

const (
	ReasonGoalReached      TerminationReason = "goal_reached"
	ReasonPatienceDepleted TerminationReason = "patience_depleted"
	ReasonTooConfused      TerminationReason = "too_confused"
	ReasonTooFrustrated    TerminationReason = "too_frustrated"
	ReasonNoProgress       TerminationReason = "no_progress"
	ReasonStuckInLoop      TerminationReason = "stuck_in_loop"
	// ReasonNothingActionable records a persona's own abandon decision:
	// no candidates were observable and the retry budget could not help.
	ReasonNothingActionable TerminationReason = "nothing_actionable"
	ReasonBudgetExhausted  TerminationReason = "budget_exhausted"
)

// Success reports whether the reason represents goal completion.
func (r TerminationReason) Success() bool { return r == ReasonGoalReached }

// FrictionKind classifies a flagged rough spot in a journey.
type FrictionKind string

const (
	FrictionConfusionSpike   FrictionKind = "confusion_spike"
	FrictionFrustrationSpike FrictionKind = "frustration_spike"
	FrictionRetryChurn       FrictionKind = "retry_churn"
	FrictionRevisit          FrictionKind = "revisit"
)

// FrictionPoint marks a step where the persona struggled.
type FrictionPoint struct {
	StepIndex int          `json:"step_index"`
	Kind      FrictionKind `json:"kind"`
	Note      string       `json:"note,omitempty"`
}

// StepRecord is the full trace of one decision cycle.
type StepRecord struct {
	Index int `json:"index"`
	// Timestamp is wall-clock (from the injected clock) for log correlation.
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	// Fingerprint is the page identity observed at this step.
	Fingerprint string   `json:"fingerprint"`
	Decision    Decision `json:"decision"`
	// Outcome is nil when the decision dispatched no action (abandon).
	Outcome *ActionOutcome `json:"outcome,omitempty"`
	// Retries counts failed attempts before Outcome, per the retry budget.
	Retries int           `json:"retries,omitempty"`
	State   StateSnapshot `json:"state"`
}

// JourneyResult is the complete, always-produced record of one journey.
// Every journey ends with exactly one termination reason; there is no
// partial-result error path short of an engine invariant violation.
type JourneyResult struct {
	JourneyID string `json:"journey_id"`
	Persona   string `json:"persona"`
	Goal      string `json:"goal"`
	StartURL  string `json:"start_url"`
	Seed      int64  `json:"seed"`
	// Traits is the resolved vector the run used, kept for exact replay.
	Traits      TraitVector       `json:"traits"`
	Reason      TerminationReason `json:"reason"`
	GoalReached bool              `json:"goal_reached"`
	Steps       []StepRecord      `json:"steps"`
	Friction    []FrictionPoint   `json:"friction,omitempty"`
	FinalState  StateSnapshot     `json:"final_state"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	// SimDuration is total simulated seconds the journey consumed.
	SimDuration float64 `json:"sim_duration_sec"`
	// Narrative is optional post-hoc embellishment; never produced by the
	// deterministic core.
	Narrative string `json:"narrative,omitempty"`
}
