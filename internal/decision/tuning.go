package decision

import "fmt"

// Tuning holds the decision-policy constants, mapped from the
// simulation.decision.* configuration keys.
type Tuning struct {
	// ArgmaxForaging is the informationForaging level above which selection
	// is a deterministic argmax over scent. GuessForaging is the level below
	// which the persona falls back to near-random choice among the options it
	// can hold in mind. Between the two, selection samples proportionally to
	// score.
	ArgmaxForaging float64 `mapstructure:"argmax_foraging"`
	GuessForaging  float64 `mapstructure:"guess_foraging"`

	// NoiseSigmaMax is the scent-noise standard deviation at comprehension 0.
	// Noise shrinks linearly to zero as comprehension approaches 1.
	NoiseSigmaMax float64 `mapstructure:"noise_sigma_max"`

	// NoveltyBonus is the scent bump for links not yet followed, scaled by
	// the curiosity trait.
	NoveltyBonus float64 `mapstructure:"novelty_bonus"`

	// Patch leaving: the persona abandons a page once it has dwelt longer
	// than DwellBaseSec + (1-foraging)*DwellSpreadSec while the best scent
	// stays under ScentFloorBase + foraging*ScentFloorSpread.
	DwellBaseSec     float64 `mapstructure:"dwell_base_sec"`
	DwellSpreadSec   float64 `mapstructure:"dwell_spread_sec"`
	ScentFloorBase   float64 `mapstructure:"scent_floor_base"`
	ScentFloorSpread float64 `mapstructure:"scent_floor_spread"`

	// Reading and scanning costs, in simulated seconds.
	WordsPerSecondMin    float64 `mapstructure:"words_per_second_min"`
	WordsPerSecondSpread float64 `mapstructure:"words_per_second_spread"`
	ScanSecPerCandidate  float64 `mapstructure:"scan_sec_per_candidate"`
	HesitationMaxSec     float64 `mapstructure:"hesitation_max_sec"`

	// TraceScoreLimit caps how many ranked candidates each decision records.
	TraceScoreLimit int `mapstructure:"trace_score_limit"`
}

// DefaultTuning returns the shipped decision constants.
func DefaultTuning() Tuning {
	return Tuning{
		ArgmaxForaging:       0.7,
		GuessForaging:        0.4,
		NoiseSigmaMax:        0.12,
		NoveltyBonus:         0.15,
		DwellBaseSec:         10,
		DwellSpreadSec:       20,
		ScentFloorBase:       0.3,
		ScentFloorSpread:     0.4,
		WordsPerSecondMin:    2,
		WordsPerSecondSpread: 4,
		ScanSecPerCandidate:  0.8,
		HesitationMaxSec:     3,
		TraceScoreLimit:      10,
	}
}

// Validate rejects constants that would break selection.
func (t Tuning) Validate() error {
	if t.GuessForaging <= 0 || t.GuessForaging >= 1 {
		return fmt.Errorf("decision tuning: guess foraging bound must be in (0,1), got %g", t.GuessForaging)
	}
	if t.ArgmaxForaging <= t.GuessForaging || t.ArgmaxForaging > 1 {
		return fmt.Errorf("decision tuning: argmax foraging bound must be in (guess, 1], got %g", t.ArgmaxForaging)
	}
	if t.NoiseSigmaMax < 0 {
		return fmt.Errorf("decision tuning: noise sigma must not be negative")
	}
	if t.NoveltyBonus < 0 {
		return fmt.Errorf("decision tuning: novelty bonus must not be negative")
	}
	if t.DwellBaseSec < 0 || t.DwellSpreadSec < 0 {
		return fmt.Errorf("decision tuning: dwell thresholds must not be negative")
	}
	if t.ScentFloorBase < 0 || t.ScentFloorBase+t.ScentFloorSpread > 1 {
		return fmt.Errorf("decision tuning: scent floor must stay within [0,1]")
	}
	if t.WordsPerSecondMin <= 0 {
		return fmt.Errorf("decision tuning: words per second min must be positive, got %g", t.WordsPerSecondMin)
	}
	if t.WordsPerSecondSpread < 0 {
		return fmt.Errorf("decision tuning: words per second spread must not be negative")
	}
	if t.ScanSecPerCandidate < 0 || t.HesitationMaxSec < 0 {
		return fmt.Errorf("decision tuning: scan and hesitation costs must not be negative")
	}
	if t.TraceScoreLimit <= 0 {
		return fmt.Errorf("decision tuning: trace score limit must be positive, got %d", t.TraceScoreLimit)
	}
	return nil
}
