// Package session models the emotional and cognitive state of one journey
// as a pure state machine. A State is a plain value; Dynamics derives each
// successor state from the previous one and an event, so replaying the same
// event sequence always reproduces the same states.
package session

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// State is the full session state after some number of steps. All four
// emotional dimensions stay in [0,1].
type State struct {
	Phase       schemas.SessionPhase
	Patience    float64
	Confusion   float64
	Frustration float64
	Trust       float64
	// SimTime is the total simulated seconds elapsed, including pauses.
	SimTime float64
	// ConfusionElevatedFor counts the consecutive simulated seconds that
	// confusion has stayed above the tuned elevation threshold. The
	// termination evaluator reads it for the sustained-confusion trigger.
	ConfusionElevatedFor float64
	// Memory is the working-memory FIFO, most recent fact last.
	Memory []string
}

// Snapshot converts the state into its wire form.
func (s State) Snapshot() schemas.StateSnapshot {
	return schemas.StateSnapshot{
		Phase:                s.Phase,
		Patience:             s.Patience,
		Confusion:            s.Confusion,
		Frustration:          s.Frustration,
		Trust:                s.Trust,
		SimTime:              s.SimTime,
		ConfusionElevatedFor: s.ConfusionElevatedFor,
	}
}

// clone returns a deep copy so transforms never alias the input's memory.
func (s State) clone() State {
	out := s
	out.Memory = append([]string(nil), s.Memory...)
	return out
}

// Event is everything one decision cycle feeds back into the state.
type Event struct {
	// Elapsed is the simulated seconds the step consumed (reading, deciding,
	// waiting on the action).
	Elapsed float64
	// Outcome is the explorer's report, nil when no action was dispatched.
	Outcome *schemas.ActionOutcome
	// Unexpected is set when the result contradicted the persona's
	// expectation (an action that succeeded but changed nothing, or landed
	// somewhere unrecognizable).
	Unexpected bool
	// Ambiguity in [0,1] reports how unreadable the page was this step,
	// taken from the decision's confidence.
	Ambiguity float64
	// BestScent is the strongest raw information scent the decision saw on
	// the page. ScentKnown distinguishes a genuine zero from an event that
	// carries no scent reading (retry attempts mid-step).
	BestScent  float64
	ScentKnown bool
	// TrustSignal in [-1,1] carries trust-relevant page events: security
	// warnings, reassuring confirmation, dark patterns.
	TrustSignal float64
	// Remember appends facts to working memory, oldest evicted first.
	Remember []string
}

// Dynamics computes state transitions for one resolved trait vector. The
// trait scaling is fixed at construction so every transition is a pure
// function of (state, event).
type Dynamics struct {
	traits schemas.TraitVector
	tun    Tuning

	patienceHalfLife  float64
	confusionHalfLife float64
	memoryCapacity    int
}

// NewDynamics builds the transition function for a trait vector.
func NewDynamics(tv schemas.TraitVector, tun Tuning) (*Dynamics, error) {
	if err := tun.Validate(); err != nil {
		return nil, err
	}
	patience := tv.Get(schemas.TraitPatience, 0.5)
	comprehension := tv.Get(schemas.TraitComprehension, 0.5)
	workingMemory := tv.Get(schemas.TraitWorkingMemory, 0.5)

	return &Dynamics{
		traits:            tv.Clone(),
		tun:               tun,
		patienceHalfLife:  tun.PatienceHalfLifeMin + tun.PatienceHalfLifeSpread*patience,
		confusionHalfLife: tun.ConfusionHalfLifeMin + tun.ConfusionHalfLifeSpread*(1-comprehension),
		memoryCapacity:    2 + int(math.Round(workingMemory*5)),
	}, nil
}

// MemoryCapacity is the working-memory slot count for this persona.
func (d *Dynamics) MemoryCapacity() int { return d.memoryCapacity }

// Initial returns the session state at journey start: a patience reserve
// seeded from the patience trait, no confusion or frustration, trust seeded
// from the socialTrust trait.
func (d *Dynamics) Initial() State {
	patience := d.traits.Get(schemas.TraitPatience, 0.5)
	return State{
		Phase:    schemas.PhaseActive,
		Patience: clamp01(d.tun.InitialPatienceBase + d.tun.InitialPatienceSpread*patience),
		Trust:    d.traits.Get(schemas.TraitSocialTrust, 0.5),
	}
}

// Apply folds one step's event into the state and returns the successor.
// The receiver state is never mutated. Apply is only legal on an active
// session.
func (d *Dynamics) Apply(s State, ev Event) (State, error) {
	if s.Phase != schemas.PhaseActive {
		return s, fmt.Errorf("session: update applied to %s state", s.Phase)
	}
	if ev.Elapsed < 0 {
		return s, fmt.Errorf("session: negative elapsed time %g", ev.Elapsed)
	}

	next := s.clone()
	next.SimTime += ev.Elapsed

	// Patience decays with simulated time and takes extra hits for failures
	// and for pages with nothing promising on them, all scaled by the
	// patience trait.
	patience := d.traits.Get(schemas.TraitPatience, 0.5)
	next.Patience *= halfLifeDecay(ev.Elapsed, d.patienceHalfLife)
	failed := ev.Outcome != nil && !ev.Outcome.Success
	if failed {
		next.Patience *= 1 - d.tun.FailurePatienceHit*(1-patience)
	}
	if ev.ScentKnown && ev.BestScent < d.tun.LowScentThreshold {
		next.Patience *= 1 - d.tun.LowScentPatienceHit*(1-patience)
	}

	// Confusion recovers toward zero, then absorbs this step's surprises.
	comprehension := d.traits.Get(schemas.TraitComprehension, 0.5)
	next.Confusion *= halfLifeDecay(ev.Elapsed, d.confusionHalfLife)
	if ev.Unexpected {
		next.Confusion += d.tun.ConfusionSpike * (1 - 0.5*comprehension)
	}
	if ev.Ambiguity > 0 {
		next.Confusion += d.tun.AmbiguityWeight * clamp01(ev.Ambiguity) * (1 - 0.5*comprehension)
	}

	// Frustration rises on failure and sheds on clean success.
	resilience := d.traits.Get(schemas.TraitResilience, 0.5)
	if failed {
		next.Frustration += d.tun.BaseFrustrationRate * (1 - 0.5*resilience)
	} else if ev.Outcome != nil && ev.Outcome.Success && !ev.Unexpected {
		next.Frustration *= 1 - d.tun.FrustrationRecovery*resilience
	}

	// Trust moves only on trust-relevant signals, at a rate set by the
	// trustCalibration trait.
	if ev.TrustSignal != 0 {
		calibration := d.traits.Get(schemas.TraitTrustCalibration, 0.5)
		next.Trust += clampSignal(ev.TrustSignal) * d.tun.TrustStep * calibration
	}

	next.Patience = clamp01(next.Patience)
	next.Confusion = clamp01(next.Confusion)
	next.Frustration = clamp01(next.Frustration)
	next.Trust = clamp01(next.Trust)

	if next.Confusion > d.tun.ConfusionElevated {
		next.ConfusionElevatedFor += ev.Elapsed
	} else {
		next.ConfusionElevatedFor = 0
	}

	next.Memory = remember(next.Memory, ev.Remember, d.memoryCapacity)
	return next, nil
}

// Interrupt pauses an active session for the duration of the signal.
func (d *Dynamics) Interrupt(s State, sig schemas.InterruptSignal) (State, error) {
	if s.Phase != schemas.PhaseActive {
		return s, fmt.Errorf("session: interrupt on %s state", s.Phase)
	}
	if sig.SimSeconds < 0 {
		return s, fmt.Errorf("session: negative interrupt duration %g", sig.SimSeconds)
	}
	next := s.clone()
	next.Phase = schemas.PhasePaused
	next.SimTime += sig.SimSeconds
	return next, nil
}

// Resume reactivates a paused session and applies the context-loss penalty:
// a confusion bump and working-memory truncation, both sized by how poorly
// the persona recovers from interruptions.
func (d *Dynamics) Resume(s State) (State, error) {
	if s.Phase != schemas.PhasePaused {
		return s, fmt.Errorf("session: resume on %s state", s.Phase)
	}
	recovery := d.traits.Get(schemas.TraitInterruptRecovery, 0.5)
	loss := 1 - recovery

	next := s.clone()
	next.Phase = schemas.PhaseActive
	next.Confusion = clamp01(next.Confusion + d.tun.ResumeConfusionPenalty*loss)

	keep := int(math.Ceil(float64(len(next.Memory)) * recovery))
	if keep < len(next.Memory) {
		// The oldest facts fade first.
		next.Memory = append([]string(nil), next.Memory[len(next.Memory)-keep:]...)
	}
	return next, nil
}

// Terminate moves any state to its terminal phase.
func (d *Dynamics) Terminate(s State) State {
	next := s.clone()
	next.Phase = schemas.PhaseTerminated
	return next
}

// halfLifeDecay returns the retention factor after elapsed seconds under the
// given half-life: 0.5 remains after exactly one half-life.
func halfLifeDecay(elapsed, halfLife float64) float64 {
	if elapsed <= 0 {
		return 1
	}
	return math.Exp2(-elapsed / halfLife)
}

// remember appends facts to the FIFO, evicting the oldest past capacity.
// Refreshing a known fact moves it to the newest slot instead of duplicating.
func remember(memory, facts []string, capacity int) []string {
	out := memory
	for _, fact := range facts {
		if fact == "" {
			continue
		}
		for i, known := range out {
			if known == fact {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
		out = append(out, fact)
	}
	if len(out) > capacity {
		out = append([]string(nil), out[len(out)-capacity:]...)
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func clampSignal(v float64) float64 {
	return math.Min(1, math.Max(-1, v))
}
