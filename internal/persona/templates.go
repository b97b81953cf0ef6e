package persona

import "github.com/xkilldash9x/meander-cli/api/schemas"

// builtinTemplates returns the curated starter personas. Each template is a
// deliberately partial assignment; the correlation resolver fills the rest,
// which keeps the templates short and internally consistent.
func builtinTemplates() []schemas.PersonaTemplate {
	return []schemas.PersonaTemplate{
		{
			Name:        "power-user",
			Description: "Fluent, fast and a little impatient; expects interfaces to keep up.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitTechLiteracy:        0.95,
				schemas.TraitComprehension:       0.85,
				schemas.TraitReadingSpeed:        0.8,
				schemas.TraitInformationForaging: 0.85,
				schemas.TraitConfidence:          0.85,
				schemas.TraitDecisiveness:        0.8,
				schemas.TraitPatience:            0.35,
				schemas.TraitCuriosity:           0.6,
			},
		},
		{
			Name:        "first-timer",
			Description: "New to the web and the domain; careful, trusting and easily thrown.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitTechLiteracy:        0.15,
				schemas.TraitDomainKnowledge:     0.2,
				schemas.TraitConfidence:          0.3,
				schemas.TraitAnxiety:             0.65,
				schemas.TraitPatience:            0.6,
				schemas.TraitReadingSpeed:        0.4,
				schemas.TraitSocialTrust:         0.6,
				schemas.TraitAuthorityCompliance: 0.75,
			},
		},
		{
			Name:        "skimmer",
			Description: "Scans instead of reading; chases the first plausible link and bails early.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitReadingSpeed:        0.9,
				schemas.TraitComprehension:       0.55,
				schemas.TraitVisualSearch:        0.7,
				schemas.TraitInformationForaging: 0.6,
				schemas.TraitImpulsivity:         0.8,
				schemas.TraitPatience:            0.25,
				schemas.TraitPersistence:         0.3,
				schemas.TraitGoalFocus:           0.4,
			},
		},
		{
			Name:        "methodical-senior",
			Description: "Reads everything, plans the route, and does not give up easily.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitPatience:            0.85,
				schemas.TraitPersistence:         0.8,
				schemas.TraitPlanningDepth:       0.75,
				schemas.TraitReadingSpeed:        0.3,
				schemas.TraitTechLiteracy:        0.35,
				schemas.TraitWorkingMemory:       0.45,
				schemas.TraitChangeDetection:     0.35,
				schemas.TraitAuthorityCompliance: 0.7,
			},
		},
		{
			Name:        "anxious-newcomer",
			Description: "Second-guesses every click and treats unfamiliar pages as hazards.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitAnxiety:           0.85,
				schemas.TraitConfidence:        0.2,
				schemas.TraitTechLiteracy:      0.3,
				schemas.TraitRiskTolerance:     0.15,
				schemas.TraitTrustCalibration:  0.3,
				schemas.TraitSocialTrust:       0.35,
				schemas.TraitPatience:          0.45,
				schemas.TraitInterruptRecovery: 0.35,
			},
		},
		{
			Name:        "distracted-parent",
			Description: "Competent but constantly interrupted; loses the thread mid-task.",
			Traits: map[schemas.TraitID]float64{
				schemas.TraitMultitaskingComfort: 0.7,
				schemas.TraitInterruptRecovery:   0.4,
				schemas.TraitWorkingMemory:       0.35,
				schemas.TraitPatience:            0.3,
				schemas.TraitGoalFocus:           0.45,
				schemas.TraitImpulsivity:         0.6,
				schemas.TraitReadingSpeed:        0.6,
				schemas.TraitCuriosity:           0.3,
			},
		},
	}
}
