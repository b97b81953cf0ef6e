// Package termination decides when a journey ends. The evaluator runs once
// per step, after the session update, and applies its triggers in a fixed
// priority order so every journey records exactly one terminal reason.
package termination

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/decision"
)

// Thresholds holds the trigger constants, mapped from the
// simulation.termination.* configuration keys.
type Thresholds struct {
	// PatienceFloor ends the journey once patience drops below it.
	PatienceFloor float64 `mapstructure:"patience_floor"`

	// Sustained confusion ends the journey once it has stayed elevated for
	// ConfusionSustainBaseSec + ConfusionSustainSpreadSec*resilience
	// simulated seconds. Resilient personas tolerate being lost longer.
	ConfusionSustainBaseSec   float64 `mapstructure:"confusion_sustain_base_sec"`
	ConfusionSustainSpreadSec float64 `mapstructure:"confusion_sustain_spread_sec"`

	// FrustrationCeiling ends the journey once frustration exceeds it.
	FrustrationCeiling float64 `mapstructure:"frustration_ceiling"`

	// NoProgressSteps ends the journey after that many consecutive steps
	// without reaching a page the persona has never seen.
	NoProgressSteps int `mapstructure:"no_progress_steps"`

	// LoopVisits ends the journey once any single page fingerprint has been
	// observed that many times.
	LoopVisits int `mapstructure:"loop_visits"`

	// GoalCoverageMin is the goal-token coverage of a page's title and
	// content above which the page counts as goal-matching, absent an
	// explicit goal signal.
	GoalCoverageMin float64 `mapstructure:"goal_coverage_min"`
}

// DefaultThresholds returns the shipped trigger constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PatienceFloor:             0.1,
		ConfusionSustainBaseSec:   8,
		ConfusionSustainSpreadSec: 22,
		FrustrationCeiling:        0.85,
		NoProgressSteps:           10,
		LoopVisits:                3,
		GoalCoverageMin:           0.6,
	}
}

// Validate rejects constants that would make the evaluator fire instantly or
// never.
func (t Thresholds) Validate() error {
	if t.PatienceFloor < 0 || t.PatienceFloor >= 1 {
		return fmt.Errorf("termination thresholds: patience floor must be in [0,1), got %g", t.PatienceFloor)
	}
	if t.ConfusionSustainBaseSec <= 0 || t.ConfusionSustainSpreadSec < 0 {
		return fmt.Errorf("termination thresholds: confusion sustain window must be positive")
	}
	if t.FrustrationCeiling <= 0 || t.FrustrationCeiling > 1 {
		return fmt.Errorf("termination thresholds: frustration ceiling must be in (0,1], got %g", t.FrustrationCeiling)
	}
	if t.NoProgressSteps <= 0 {
		return fmt.Errorf("termination thresholds: no-progress steps must be positive, got %d", t.NoProgressSteps)
	}
	if t.LoopVisits < 2 {
		return fmt.Errorf("termination thresholds: loop visits must be at least 2, got %d", t.LoopVisits)
	}
	if t.GoalCoverageMin <= 0 || t.GoalCoverageMin > 1 {
		return fmt.Errorf("termination thresholds: goal coverage must be in (0,1], got %g", t.GoalCoverageMin)
	}
	return nil
}

// Evaluator tracks per-journey navigation history and applies the
// termination triggers. One evaluator serves exactly one journey.
type Evaluator struct {
	thr        Thresholds
	goal       decision.Goal
	maxSteps   int
	maxSimSec  float64
	sustainSec float64

	steps       int
	stepsNoGain int
	visits      map[string]int
}

// NewEvaluator builds the evaluator for one journey. maxSimSec caps
// simulated seconds; zero means no time budget.
func NewEvaluator(tv schemas.TraitVector, thr Thresholds, goal decision.Goal, maxSteps int, maxSimSec float64) (*Evaluator, error) {
	if err := thr.Validate(); err != nil {
		return nil, err
	}
	if maxSteps <= 0 {
		return nil, fmt.Errorf("termination: max steps must be positive, got %d", maxSteps)
	}
	if maxSimSec < 0 {
		return nil, fmt.Errorf("termination: max simulated time must not be negative, got %g", maxSimSec)
	}

	resilience := tv.Get(schemas.TraitResilience, 0.5)
	return &Evaluator{
		thr:        thr,
		goal:       goal,
		maxSteps:   maxSteps,
		maxSimSec:  maxSimSec,
		sustainSec: thr.ConfusionSustainBaseSec + thr.ConfusionSustainSpreadSec*resilience,
		visits:     make(map[string]int),
	}, nil
}

// Check records one completed step and reports whether the journey ends and
// why. Triggers are evaluated in priority order; the first match is the only
// reason ever returned for a step.
func (e *Evaluator) Check(obs schemas.Observation, st schemas.StateSnapshot) (schemas.TerminationReason, bool) {
	e.steps++

	// An unidentifiable page can't witness progress or close a loop.
	novel := false
	if obs.Fingerprint != "" {
		e.visits[obs.Fingerprint]++
		novel = e.visits[obs.Fingerprint] == 1
	}
	if novel {
		e.stepsNoGain = 0
	} else {
		e.stepsNoGain++
	}

	switch {
	case st.Patience < e.thr.PatienceFloor:
		return schemas.ReasonPatienceDepleted, true
	case st.ConfusionElevatedFor >= e.sustainSec:
		return schemas.ReasonTooConfused, true
	case st.Frustration > e.thr.FrustrationCeiling:
		return schemas.ReasonTooFrustrated, true
	case e.stepsNoGain >= e.thr.NoProgressSteps:
		return schemas.ReasonNoProgress, true
	case obs.Fingerprint != "" && e.visits[obs.Fingerprint] >= e.thr.LoopVisits:
		return schemas.ReasonStuckInLoop, true
	case e.goalMatched(obs):
		return schemas.ReasonGoalReached, true
	case e.steps >= e.maxSteps:
		return schemas.ReasonBudgetExhausted, true
	case e.maxSimSec > 0 && st.SimTime >= e.maxSimSec:
		return schemas.ReasonBudgetExhausted, true
	}
	return "", false
}

// VisitCount reports how often a page fingerprint has been observed so far.
func (e *Evaluator) VisitCount(fingerprint string) int {
	return e.visits[fingerprint]
}

// goalMatched reports whether the observation satisfies the goal, either via
// the explorer's explicit signal or by goal-token coverage of what the page
// says about itself.
func (e *Evaluator) goalMatched(obs schemas.Observation) bool {
	if obs.GoalSignal {
		return true
	}
	var b strings.Builder
	b.WriteString(obs.Title)
	for _, block := range obs.Content {
		b.WriteByte(' ')
		b.WriteString(block.Text)
	}
	return e.goal.Coverage(b.String()) >= e.thr.GoalCoverageMin
}
