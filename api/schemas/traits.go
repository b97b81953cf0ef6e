package schemas

// TraitID identifies a single cognitive trait in the catalog.
type TraitID string

// Core cognition traits.
const (
	// TraitComprehension is how quickly and accurately page content is understood.
	TraitComprehension TraitID = "comprehension"
	// TraitWorkingMemory is how many recent facts stay available while navigating.
	TraitWorkingMemory TraitID = "workingMemory"
	// TraitTechLiteracy is general fluency with web conventions and controls.
	TraitTechLiteracy TraitID = "techLiteracy"
	// TraitDomainKnowledge is familiarity with the subject matter of the site.
	TraitDomainKnowledge TraitID = "domainKnowledge"
	// TraitReadingSpeed scales the simulated cost of consuming content blocks.
	TraitReadingSpeed TraitID = "readingSpeed"
)

// Emotional regulation traits.
const (
	// TraitPatience is tolerance for delay and meandering before giving up.
	TraitPatience TraitID = "patience"
	// TraitResilience is how quickly frustration recovers after setbacks.
	TraitResilience TraitID = "resilience"
	// TraitConfidence is baseline self-assurance when acting under uncertainty.
	TraitConfidence TraitID = "confidence"
	// TraitAnxiety is susceptibility to stress from ambiguity and risk.
	TraitAnxiety TraitID = "anxiety"
	// TraitTrustCalibration is how readily trust adjusts to site signals.
	TraitTrustCalibration TraitID = "trustCalibration"
)

// Decision-making traits.
const (
	// TraitImpulsivity is the tendency to act before fully evaluating options.
	TraitImpulsivity TraitID = "impulsivity"
	// TraitRiskTolerance is willingness to try uncertain or unfamiliar paths.
	TraitRiskTolerance TraitID = "riskTolerance"
	// TraitDecisiveness is how quickly a choice is committed to once scored.
	TraitDecisiveness TraitID = "decisiveness"
	// TraitTimeHorizon is the weight given to future payoff over immediate ease.
	TraitTimeHorizon TraitID = "timeHorizon"
	// TraitPersistence is how many retries a failing action is given.
	TraitPersistence TraitID = "persistence"
)

// Planning traits.
const (
	// TraitGoalFocus is resistance to drifting away from the stated goal.
	TraitGoalFocus TraitID = "goalFocus"
	// TraitPlanningDepth is how many steps ahead a route is considered.
	TraitPlanningDepth TraitID = "planningDepth"
	// TraitInterruptRecovery is how much context survives an interruption.
	TraitInterruptRecovery TraitID = "interruptRecovery"
	// TraitMultitaskingComfort is tolerance for juggling parallel page threads.
	TraitMultitaskingComfort TraitID = "multitaskingComfort"
)

// Perception traits.
const (
	// TraitInformationForaging is sensitivity to information scent when choosing links.
	TraitInformationForaging TraitID = "informationForaging"
	// TraitVisualSearch is efficiency at locating elements on a busy page.
	TraitVisualSearch TraitID = "visualSearch"
	// TraitChangeDetection is how reliably page changes are noticed.
	TraitChangeDetection TraitID = "changeDetection"
	// TraitCuriosity is the pull toward exploring off-goal but interesting paths.
	TraitCuriosity TraitID = "curiosity"
)

// Social traits.
const (
	// TraitSocialTrust is default trust extended to unfamiliar sites.
	TraitSocialTrust TraitID = "socialTrust"
	// TraitAuthorityCompliance is deference to official-looking instructions.
	TraitAuthorityCompliance TraitID = "authorityCompliance"
)

// TraitCategory groups related traits in the catalog.
type TraitCategory string

const (
	CategoryCore           TraitCategory = "core"
	CategoryEmotional      TraitCategory = "emotional"
	CategoryDecisionMaking TraitCategory = "decision_making"
	CategoryPlanning       TraitCategory = "planning"
	CategoryPerception     TraitCategory = "perception"
	CategorySocial         TraitCategory = "social"
)

// TraitVector is a complete assignment of values in [0.0, 1.0] to every
// catalog trait. Partial vectors only appear as builder input; everything
// downstream of the resolver operates on complete vectors.
type TraitVector map[TraitID]float64

// Get returns the value for id, or fallback when the vector has no entry.
func (v TraitVector) Get(id TraitID, fallback float64) float64 {
	if val, ok := v[id]; ok {
		return val
	}
	return fallback
}

// Clone returns an independent copy of the vector.
func (v TraitVector) Clone() TraitVector {
	out := make(TraitVector, len(v))
	for id, val := range v {
		out[id] = val
	}
	return out
}
