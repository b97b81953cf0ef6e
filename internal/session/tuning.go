package session

import "fmt"

// Tuning holds the state dynamics constants. Values are mapped from the
// simulation.session.* configuration keys; DefaultTuning matches the shipped
// config file.
type Tuning struct {
	// InitialPatienceBase and InitialPatienceSpread seed the patience
	// reserve at journey start: Base + Spread*trait, so an unhurried persona
	// starts with a full tank and a hair-trigger one starts near Base.
	InitialPatienceBase   float64 `mapstructure:"initial_patience_base"`
	InitialPatienceSpread float64 `mapstructure:"initial_patience_spread"`
	// PatienceHalfLifeMin is the patience decay half-life, in simulated
	// seconds, for a persona with patience trait 0. PatienceHalfLifeSpread
	// is added per unit of trait, so trait 1.0 yields Min+Spread.
	PatienceHalfLifeMin    float64 `mapstructure:"patience_half_life_min"`
	PatienceHalfLifeSpread float64 `mapstructure:"patience_half_life_spread"`
	// FailurePatienceHit multiplies into patience on failed actions, scaled
	// down by the patience trait: a full hit at trait 0, nothing at trait 1.
	FailurePatienceHit float64 `mapstructure:"failure_patience_hit"`
	// LowScentPatienceHit multiplies into patience once per step when the
	// page's best scent sits below LowScentThreshold: a page with nothing
	// promising on it is friction even when every click lands.
	LowScentPatienceHit float64 `mapstructure:"low_scent_patience_hit"`
	LowScentThreshold   float64 `mapstructure:"low_scent_threshold"`

	// ConfusionHalfLifeMin/Spread shape confusion recovery: high
	// comprehension shortens the half-life toward Min.
	ConfusionHalfLifeMin    float64 `mapstructure:"confusion_half_life_min"`
	ConfusionHalfLifeSpread float64 `mapstructure:"confusion_half_life_spread"`
	// ConfusionSpike is added when an action's result contradicts
	// expectation. AmbiguityWeight scales the per-step ambiguity signal.
	ConfusionSpike  float64 `mapstructure:"confusion_spike"`
	AmbiguityWeight float64 `mapstructure:"ambiguity_weight"`
	// ConfusionElevated is the level above which time counts toward the
	// sustained-confusion window the termination evaluator reads.
	ConfusionElevated float64 `mapstructure:"confusion_elevated"`

	// BaseFrustrationRate is added per failed action, scaled by resilience.
	BaseFrustrationRate float64 `mapstructure:"base_frustration_rate"`
	// FrustrationRecovery is the fraction of frustration shed on a clean
	// success, scaled by resilience.
	FrustrationRecovery float64 `mapstructure:"frustration_recovery"`

	// TrustStep sizes trust movement per unit of trust signal, scaled by
	// the trustCalibration trait.
	TrustStep float64 `mapstructure:"trust_step"`

	// ResumeConfusionPenalty is the confusion added when resuming from an
	// interruption, scaled by (1 - interruptRecovery).
	ResumeConfusionPenalty float64 `mapstructure:"resume_confusion_penalty"`
}

// DefaultTuning returns the shipped dynamics constants.
func DefaultTuning() Tuning {
	return Tuning{
		InitialPatienceBase:     0.3,
		InitialPatienceSpread:   0.7,
		PatienceHalfLifeMin:     5,
		PatienceHalfLifeSpread:  195,
		FailurePatienceHit:      0.35,
		LowScentPatienceHit:     0.3,
		LowScentThreshold:       0.2,
		ConfusionHalfLifeMin:    4,
		ConfusionHalfLifeSpread: 26,
		ConfusionSpike:          0.35,
		AmbiguityWeight:         0.2,
		ConfusionElevated:       0.8,
		BaseFrustrationRate:     0.25,
		FrustrationRecovery:     0.3,
		TrustStep:               0.15,
		ResumeConfusionPenalty:  0.4,
	}
}

// Validate rejects constants that would break the [0,1] state invariants.
func (t Tuning) Validate() error {
	if t.InitialPatienceBase <= 0 || t.InitialPatienceBase > 1 {
		return fmt.Errorf("session tuning: initial patience base must be in (0,1], got %g", t.InitialPatienceBase)
	}
	if t.InitialPatienceSpread < 0 || t.InitialPatienceBase+t.InitialPatienceSpread > 1 {
		return fmt.Errorf("session tuning: initial patience base plus spread must stay within [0,1]")
	}
	if t.LowScentPatienceHit < 0 || t.LowScentPatienceHit > 1 {
		return fmt.Errorf("session tuning: low scent patience hit must be in [0,1], got %g", t.LowScentPatienceHit)
	}
	if t.LowScentThreshold < 0 || t.LowScentThreshold >= 1 {
		return fmt.Errorf("session tuning: low scent threshold must be in [0,1), got %g", t.LowScentThreshold)
	}
	if t.PatienceHalfLifeMin <= 0 {
		return fmt.Errorf("session tuning: patience half-life min must be positive, got %g", t.PatienceHalfLifeMin)
	}
	if t.PatienceHalfLifeSpread < 0 {
		return fmt.Errorf("session tuning: patience half-life spread must not be negative")
	}
	if t.FailurePatienceHit < 0 || t.FailurePatienceHit > 1 {
		return fmt.Errorf("session tuning: failure patience hit must be in [0,1], got %g", t.FailurePatienceHit)
	}
	if t.ConfusionHalfLifeMin <= 0 {
		return fmt.Errorf("session tuning: confusion half-life min must be positive, got %g", t.ConfusionHalfLifeMin)
	}
	if t.ConfusionHalfLifeSpread < 0 {
		return fmt.Errorf("session tuning: confusion half-life spread must not be negative")
	}
	if t.ConfusionElevated <= 0 || t.ConfusionElevated > 1 {
		return fmt.Errorf("session tuning: elevated confusion threshold must be in (0,1], got %g", t.ConfusionElevated)
	}
	if t.BaseFrustrationRate < 0 || t.BaseFrustrationRate > 1 {
		return fmt.Errorf("session tuning: base frustration rate must be in [0,1], got %g", t.BaseFrustrationRate)
	}
	if t.FrustrationRecovery < 0 || t.FrustrationRecovery > 1 {
		return fmt.Errorf("session tuning: frustration recovery must be in [0,1], got %g", t.FrustrationRecovery)
	}
	if t.TrustStep < 0 || t.TrustStep > 1 {
		return fmt.Errorf("session tuning: trust step must be in [0,1], got %g", t.TrustStep)
	}
	if t.ResumeConfusionPenalty < 0 || t.ResumeConfusionPenalty > 1 {
		return fmt.Errorf("session tuning: resume confusion penalty must be in [0,1], got %g", t.ResumeConfusionPenalty)
	}
	return nil
}
