// Package traits defines the cognitive trait catalog and the correlation
// resolver that completes partial trait assignments. The catalog is pure
// data: adding a trait means adding a Definition literal, and every consumer
// (persona builder, session state, decision policy) discovers it through the
// catalog rather than hardcoding IDs.
package traits

import (
	"fmt"
	"math"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// Level is one labeled band of trait values. Bands are ordered by ascending
// Min; a value belongs to the last band whose Min it reaches.
type Level struct {
	Label string
	Min   float64
}

// Correlation expresses how an explicitly supplied source trait shifts this
// trait away from its default during resolution. Weight is in [-1, 1]; a
// positive weight moves the derived trait in the same direction the source
// sits relative to the 0.5 midpoint.
type Correlation struct {
	Source    schemas.TraitID
	Weight    float64
	Rationale string
}

// Definition describes one catalog trait.
type Definition struct {
	ID           schemas.TraitID
	Category     schemas.TraitCategory
	Description  string
	Default      float64
	Levels       []Level
	Correlations []Correlation
}

// Catalog is the immutable registry of trait definitions. Declaration order
// is significant: resolution and iteration follow it exactly.
type Catalog struct {
	defs  []Definition
	index map[schemas.TraitID]int
}

// NewCatalog builds the standard catalog.
func NewCatalog() *Catalog {
	defs := standardDefinitions()
	index := make(map[schemas.TraitID]int, len(defs))
	for i, d := range defs {
		if _, dup := index[d.ID]; dup {
			panic(fmt.Sprintf("traits: duplicate catalog definition %q", d.ID))
		}
		index[d.ID] = i
	}
	return &Catalog{defs: defs, index: index}
}

// Len returns the number of traits in the catalog.
func (c *Catalog) Len() int { return len(c.defs) }

// Has reports whether id is a catalog trait.
func (c *Catalog) Has(id schemas.TraitID) bool {
	_, ok := c.index[id]
	return ok
}

// Get returns the definition for id.
func (c *Catalog) Get(id schemas.TraitID) (Definition, error) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownTrait, id)
	}
	return c.defs[i], nil
}

// All returns every definition in declaration order. The slice is a copy;
// callers cannot mutate the catalog through it.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Defaults returns a complete vector of catalog default values.
func (c *Catalog) Defaults() schemas.TraitVector {
	out := make(schemas.TraitVector, len(c.defs))
	for _, d := range c.defs {
		out[d.ID] = d.Default
	}
	return out
}

// LevelLabel maps a value to the behavioral band label for the trait.
func (c *Catalog) LevelLabel(id schemas.TraitID, value float64) (string, error) {
	def, err := c.Get(id)
	if err != nil {
		return "", err
	}
	if !validValue(value) {
		return "", &InvalidValueError{Trait: id, Value: value}
	}
	label := def.Levels[0].Label
	for _, lv := range def.Levels {
		if value >= lv.Min {
			label = lv.Label
		}
	}
	return label, nil
}

// Validate checks a partial assignment against the catalog: every ID must be
// known and every value in [0,1]. Order of checks follows catalog order so
// error messages are stable.
func (c *Catalog) Validate(partial map[schemas.TraitID]float64) error {
	for id := range partial {
		if !c.Has(id) {
			return fmt.Errorf("%w: %q", ErrUnknownTrait, id)
		}
	}
	for _, d := range c.defs {
		v, ok := partial[d.ID]
		if !ok {
			continue
		}
		if !validValue(v) {
			return &InvalidValueError{Trait: d.ID, Value: v}
		}
	}
	return nil
}

// validValue accepts exactly the closed interval [0,1]. NaN is rejected
// explicitly since it slips past both range comparisons.
func validValue(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func levels4(a, b, c, d string) []Level {
	return []Level{{a, 0}, {b, 0.25}, {c, 0.5}, {d, 0.75}}
}

func standardDefinitions() []Definition {
	return []Definition{
		// -- Core cognition --
		{
			ID:          schemas.TraitComprehension,
			Category:    schemas.CategoryCore,
			Description: "How quickly and accurately page content is understood.",
			Default:     0.5,
			Levels:      levels4("lost easily", "needs plain wording", "solid grasp", "instant grasp"),
			Correlations: []Correlation{
				{Source: schemas.TraitTechLiteracy, Weight: 0.3, Rationale: "web fluency carries most interface reading"},
				{Source: schemas.TraitDomainKnowledge, Weight: 0.3, Rationale: "familiar subject matter reads faster"},
			},
		},
		{
			ID:          schemas.TraitWorkingMemory,
			Category:    schemas.CategoryCore,
			Description: "How many recent facts stay available while navigating.",
			Default:     0.5,
			Levels:      levels4("retains little", "loses threads", "holds context", "total recall"),
		},
		{
			ID:          schemas.TraitTechLiteracy,
			Category:    schemas.CategoryCore,
			Description: "General fluency with web conventions and controls.",
			Default:     0.5,
			Levels:      levels4("novice", "casual user", "fluent", "power user"),
		},
		{
			ID:          schemas.TraitDomainKnowledge,
			Category:    schemas.CategoryCore,
			Description: "Familiarity with the subject matter of the site.",
			Default:     0.4,
			Levels:      levels4("newcomer", "browsing familiarity", "practitioner", "expert"),
		},
		{
			ID:          schemas.TraitReadingSpeed,
			Category:    schemas.CategoryCore,
			Description: "Scales the simulated cost of consuming content.",
			Default:     0.5,
			Levels:      levels4("word by word", "careful reader", "brisk reader", "speed reader"),
			Correlations: []Correlation{
				{Source: schemas.TraitComprehension, Weight: 0.4, Rationale: "strong readers read fast"},
			},
		},

		// -- Emotional regulation --
		{
			ID:          schemas.TraitPatience,
			Category:    schemas.CategoryEmotional,
			Description: "Tolerance for delay and meandering before giving up.",
			Default:     0.5,
			Levels:      levels4("hair trigger", "restless", "steady", "unhurried"),
		},
		{
			ID:          schemas.TraitResilience,
			Category:    schemas.CategoryEmotional,
			Description: "How quickly frustration recovers after setbacks.",
			Default:     0.5,
			Levels:      levels4("brittle", "slow to recover", "bounces back", "unshakeable"),
			Correlations: []Correlation{
				{Source: schemas.TraitConfidence, Weight: 0.3, Rationale: "self-assurance cushions setbacks"},
			},
		},
		{
			ID:          schemas.TraitConfidence,
			Category:    schemas.CategoryEmotional,
			Description: "Baseline self-assurance when acting under uncertainty.",
			Default:     0.5,
			Levels:      levels4("hesitant", "tentative", "assured", "bold"),
			Correlations: []Correlation{
				{Source: schemas.TraitDomainKnowledge, Weight: 0.3, Rationale: "knowing the territory breeds confidence"},
				{Source: schemas.TraitTechLiteracy, Weight: 0.2, Rationale: "tool fluency breeds confidence"},
			},
		},
		{
			ID:          schemas.TraitAnxiety,
			Category:    schemas.CategoryEmotional,
			Description: "Susceptibility to stress from ambiguity and risk.",
			Default:     0.4,
			Levels:      levels4("calm", "mild unease", "wary", "on edge"),
			Correlations: []Correlation{
				{Source: schemas.TraitConfidence, Weight: -0.6, Rationale: "confidence displaces worry"},
				{Source: schemas.TraitResilience, Weight: -0.3, Rationale: "quick recovery keeps stress low"},
			},
		},
		{
			ID:          schemas.TraitTrustCalibration,
			Category:    schemas.CategoryEmotional,
			Description: "How readily trust adjusts to signals the site gives off.",
			Default:     0.5,
			Levels:      levels4("fixed first impression", "slow to update", "responsive", "sharply calibrated"),
			Correlations: []Correlation{
				{Source: schemas.TraitTechLiteracy, Weight: 0.4, Rationale: "experienced users read trust signals"},
				{Source: schemas.TraitDomainKnowledge, Weight: 0.2, Rationale: "domain insiders know what legitimate looks like"},
			},
		},

		// -- Decision making --
		{
			ID:          schemas.TraitImpulsivity,
			Category:    schemas.CategoryDecisionMaking,
			Description: "Tendency to act before fully evaluating options.",
			Default:     0.45,
			Levels:      levels4("deliberate", "measured", "quick to act", "acts on impulse"),
			Correlations: []Correlation{
				{Source: schemas.TraitPatience, Weight: -0.5, Rationale: "patience suppresses snap actions"},
			},
		},
		{
			ID:          schemas.TraitRiskTolerance,
			Category:    schemas.CategoryDecisionMaking,
			Description: "Willingness to try uncertain or unfamiliar paths.",
			Default:     0.45,
			Levels:      levels4("risk averse", "cautious", "open to risk", "risk seeking"),
			Correlations: []Correlation{
				{Source: schemas.TraitAnxiety, Weight: -0.5, Rationale: "anxious users avoid the unknown"},
			},
		},
		{
			ID:          schemas.TraitDecisiveness,
			Category:    schemas.CategoryDecisionMaking,
			Description: "How quickly a choice is committed to once options are scored.",
			Default:     0.5,
			Levels:      levels4("second-guesses", "deliberative", "decisive", "snap judgments"),
			Correlations: []Correlation{
				{Source: schemas.TraitConfidence, Weight: 0.5, Rationale: "confidence converts scores into commitment"},
			},
		},
		{
			ID:          schemas.TraitTimeHorizon,
			Category:    schemas.CategoryDecisionMaking,
			Description: "Weight given to future payoff over immediate ease.",
			Default:     0.5,
			Levels:      levels4("now-focused", "short term", "forward looking", "long game"),
			Correlations: []Correlation{
				{Source: schemas.TraitPatience, Weight: 0.4, Rationale: "patience extends the horizon"},
			},
		},
		{
			ID:          schemas.TraitPersistence,
			Category:    schemas.CategoryDecisionMaking,
			Description: "How many retries a failing approach is given before moving on.",
			Default:     0.5,
			Levels:      levels4("gives up fast", "one more try", "keeps at it", "dogged"),
			Correlations: []Correlation{
				{Source: schemas.TraitPatience, Weight: 0.6, Rationale: "patient people keep trying"},
				{Source: schemas.TraitResilience, Weight: 0.3, Rationale: "recovery fuels another attempt"},
			},
		},

		// -- Planning --
		{
			ID:          schemas.TraitGoalFocus,
			Category:    schemas.CategoryPlanning,
			Description: "Resistance to drifting away from the stated goal.",
			Default:     0.55,
			Levels:      levels4("wanders", "distractible", "on task", "locked in"),
			Correlations: []Correlation{
				{Source: schemas.TraitDecisiveness, Weight: 0.3, Rationale: "committed choosers stay on course"},
				{Source: schemas.TraitImpulsivity, Weight: -0.4, Rationale: "impulse pulls off-goal"},
			},
		},
		{
			ID:          schemas.TraitPlanningDepth,
			Category:    schemas.CategoryPlanning,
			Description: "How many steps ahead a route is considered.",
			Default:     0.45,
			Levels:      levels4("reactive", "a step ahead", "plans the route", "chess player"),
			Correlations: []Correlation{
				{Source: schemas.TraitTimeHorizon, Weight: 0.5, Rationale: "long horizons reward planning"},
				{Source: schemas.TraitImpulsivity, Weight: -0.3, Rationale: "impulse skips the plan"},
			},
		},
		{
			ID:          schemas.TraitInterruptRecovery,
			Category:    schemas.CategoryPlanning,
			Description: "How much working context survives an interruption.",
			Default:     0.5,
			Levels:      levels4("loses everything", "needs re-orienting", "picks up quickly", "seamless return"),
			Correlations: []Correlation{
				{Source: schemas.TraitWorkingMemory, Weight: 0.5, Rationale: "context survives in memory"},
			},
		},
		{
			ID:          schemas.TraitMultitaskingComfort,
			Category:    schemas.CategoryPlanning,
			Description: "Tolerance for juggling parallel page threads.",
			Default:     0.45,
			Levels:      levels4("single thread", "prefers focus", "comfortable juggling", "parallel by habit"),
			Correlations: []Correlation{
				{Source: schemas.TraitWorkingMemory, Weight: 0.4, Rationale: "juggling needs memory slots"},
				{Source: schemas.TraitAnxiety, Weight: -0.2, Rationale: "stress narrows attention"},
			},
		},

		// -- Perception --
		{
			ID:          schemas.TraitInformationForaging,
			Category:    schemas.CategoryPerception,
			Description: "Sensitivity to information scent when choosing where to go next.",
			Default:     0.5,
			Levels:      levels4("scent blind", "follows obvious trails", "good nose", "bloodhound"),
			Correlations: []Correlation{
				{Source: schemas.TraitComprehension, Weight: 0.4, Rationale: "understanding labels is most of the scent"},
				{Source: schemas.TraitDomainKnowledge, Weight: 0.3, Rationale: "insiders recognize the right trail"},
			},
		},
		{
			ID:          schemas.TraitVisualSearch,
			Category:    schemas.CategoryPerception,
			Description: "Efficiency at locating elements on a busy page.",
			Default:     0.5,
			Levels:      levels4("misses things", "methodical scanner", "quick to spot", "eagle eyed"),
			Correlations: []Correlation{
				{Source: schemas.TraitTechLiteracy, Weight: 0.3, Rationale: "layout conventions guide the eye"},
			},
		},
		{
			ID:          schemas.TraitChangeDetection,
			Category:    schemas.CategoryPerception,
			Description: "How reliably page changes are noticed after an action.",
			Default:     0.5,
			Levels:      levels4("change blind", "notices big shifts", "alert", "misses nothing"),
			Correlations: []Correlation{
				{Source: schemas.TraitVisualSearch, Weight: 0.4, Rationale: "scanners spot the diff"},
			},
		},
		{
			ID:          schemas.TraitCuriosity,
			Category:    schemas.CategoryPerception,
			Description: "Pull toward exploring off-goal but interesting paths.",
			Default:     0.5,
			Levels:      levels4("incurious", "mildly curious", "inquisitive", "rabbit holes"),
			Correlations: []Correlation{
				{Source: schemas.TraitRiskTolerance, Weight: 0.4, Rationale: "exploring is a small gamble"},
			},
		},

		// -- Social --
		{
			ID:          schemas.TraitSocialTrust,
			Category:    schemas.CategorySocial,
			Description: "Default trust extended to unfamiliar sites.",
			Default:     0.5,
			Levels:      levels4("suspicious", "guarded", "trusting", "takes it on faith"),
			Correlations: []Correlation{
				{Source: schemas.TraitAnxiety, Weight: -0.3, Rationale: "worry reads as threat"},
				{Source: schemas.TraitConfidence, Weight: 0.2, Rationale: "secure people extend trust"},
			},
		},
		{
			ID:          schemas.TraitAuthorityCompliance,
			Category:    schemas.CategorySocial,
			Description: "Deference to official-looking instructions on the page.",
			Default:     0.55,
			Levels:      levels4("contrarian", "questions instructions", "follows guidance", "deferential"),
			Correlations: []Correlation{
				{Source: schemas.TraitSocialTrust, Weight: 0.3, Rationale: "trust extends to instructions"},
			},
		},
	}
}
