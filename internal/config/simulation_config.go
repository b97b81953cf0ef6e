// File: internal/config/simulation_config.go
// This file defines the SimulationConfig struct, which carries all the tunable
// parameters of the cognitive simulation: session dynamics (patience decay,
// confusion spikes, trust drift), decision policy (scent weighting, noise,
// time costs), and termination thresholds. The values here shape *how* a
// persona behaves; the persona's traits decide *how much* of each behavior
// shows up.
//
// Everything is loadable from the config file via Viper, so a study can be
// re-tuned without touching code. The shipped defaults are the calibrated
// baseline the engine's tests pin down.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/meander-cli/internal/journey"
)

// SimulationConfig bundles the engine tuning with run-level budgets.
type SimulationConfig struct {
	// MaxSteps caps the number of journey steps when a run doesn't say.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// MaxTime caps simulated time. Zero disables the time budget.
	MaxTime time.Duration `mapstructure:"max_time" yaml:"max_time"`
	// Seed drives every stochastic draw in a run. Zero means "pick one at
	// startup and record it", keeping runs replayable either way.
	Seed   int64           `mapstructure:"seed" yaml:"seed"`
	Tuning journey.Tunings `mapstructure:"tuning" yaml:"tuning"`
}

// Validate checks budgets and defers to each tuning section.
func (s *SimulationConfig) Validate() error {
	if s.MaxSteps <= 0 {
		return fmt.Errorf("simulation.max_steps must be positive")
	}
	if s.MaxTime < 0 {
		return fmt.Errorf("simulation.max_time cannot be negative")
	}
	if err := s.Tuning.Session.Validate(); err != nil {
		return fmt.Errorf("tuning.session: %w", err)
	}
	if err := s.Tuning.Decision.Validate(); err != nil {
		return fmt.Errorf("tuning.decision: %w", err)
	}
	if err := s.Tuning.Termination.Validate(); err != nil {
		return fmt.Errorf("tuning.termination: %w", err)
	}
	return nil
}

// setSimulationDefaults registers the calibrated baseline so a bare config
// file still yields a fully tuned engine. The engine's Default* constructors
// are the single source of truth; this only mirrors them into viper keys.
func setSimulationDefaults(v *viper.Viper) {
	v.SetDefault("simulation.max_steps", 20)
	v.SetDefault("simulation.max_time", time.Duration(0))
	v.SetDefault("simulation.seed", int64(0))

	tun := journey.DefaultTunings()

	// -- Session dynamics --
	s := tun.Session
	v.SetDefault("simulation.tuning.session.initial_patience_base", s.InitialPatienceBase)
	v.SetDefault("simulation.tuning.session.initial_patience_spread", s.InitialPatienceSpread)
	v.SetDefault("simulation.tuning.session.patience_half_life_min", s.PatienceHalfLifeMin)
	v.SetDefault("simulation.tuning.session.patience_half_life_spread", s.PatienceHalfLifeSpread)
	v.SetDefault("simulation.tuning.session.failure_patience_hit", s.FailurePatienceHit)
	v.SetDefault("simulation.tuning.session.low_scent_patience_hit", s.LowScentPatienceHit)
	v.SetDefault("simulation.tuning.session.low_scent_threshold", s.LowScentThreshold)
	v.SetDefault("simulation.tuning.session.confusion_half_life_min", s.ConfusionHalfLifeMin)
	v.SetDefault("simulation.tuning.session.confusion_half_life_spread", s.ConfusionHalfLifeSpread)
	v.SetDefault("simulation.tuning.session.confusion_spike", s.ConfusionSpike)
	v.SetDefault("simulation.tuning.session.ambiguity_weight", s.AmbiguityWeight)
	v.SetDefault("simulation.tuning.session.confusion_elevated", s.ConfusionElevated)
	v.SetDefault("simulation.tuning.session.base_frustration_rate", s.BaseFrustrationRate)
	v.SetDefault("simulation.tuning.session.frustration_recovery", s.FrustrationRecovery)
	v.SetDefault("simulation.tuning.session.trust_step", s.TrustStep)
	v.SetDefault("simulation.tuning.session.resume_confusion_penalty", s.ResumeConfusionPenalty)

	// -- Decision policy --
	d := tun.Decision
	v.SetDefault("simulation.tuning.decision.argmax_foraging", d.ArgmaxForaging)
	v.SetDefault("simulation.tuning.decision.guess_foraging", d.GuessForaging)
	v.SetDefault("simulation.tuning.decision.noise_sigma_max", d.NoiseSigmaMax)
	v.SetDefault("simulation.tuning.decision.novelty_bonus", d.NoveltyBonus)
	v.SetDefault("simulation.tuning.decision.dwell_base_sec", d.DwellBaseSec)
	v.SetDefault("simulation.tuning.decision.dwell_spread_sec", d.DwellSpreadSec)
	v.SetDefault("simulation.tuning.decision.scent_floor_base", d.ScentFloorBase)
	v.SetDefault("simulation.tuning.decision.scent_floor_spread", d.ScentFloorSpread)
	v.SetDefault("simulation.tuning.decision.words_per_second_min", d.WordsPerSecondMin)
	v.SetDefault("simulation.tuning.decision.words_per_second_spread", d.WordsPerSecondSpread)
	v.SetDefault("simulation.tuning.decision.scan_sec_per_candidate", d.ScanSecPerCandidate)
	v.SetDefault("simulation.tuning.decision.hesitation_max_sec", d.HesitationMaxSec)
	v.SetDefault("simulation.tuning.decision.trace_score_limit", d.TraceScoreLimit)

	// -- Termination thresholds --
	t := tun.Termination
	v.SetDefault("simulation.tuning.termination.patience_floor", t.PatienceFloor)
	v.SetDefault("simulation.tuning.termination.confusion_sustain_base_sec", t.ConfusionSustainBaseSec)
	v.SetDefault("simulation.tuning.termination.confusion_sustain_spread_sec", t.ConfusionSustainSpreadSec)
	v.SetDefault("simulation.tuning.termination.frustration_ceiling", t.FrustrationCeiling)
	v.SetDefault("simulation.tuning.termination.no_progress_steps", t.NoProgressSteps)
	v.SetDefault("simulation.tuning.termination.loop_visits", t.LoopVisits)
	v.SetDefault("simulation.tuning.termination.goal_coverage_min", t.GoalCoverageMin)
}
