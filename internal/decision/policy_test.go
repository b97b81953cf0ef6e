package decision

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

func testPolicy(t *testing.T, tv schemas.TraitVector, seed int64) *Policy {
	t.Helper()
	p, err := NewPolicy(tv, DefaultTuning(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return p
}

func cand(ref, label string, prominence float64) schemas.CandidateElement {
	return schemas.CandidateElement{
		Ref:        ref,
		Label:      label,
		Role:       schemas.RoleLink,
		Prominence: prominence,
		Href:       "/" + ref,
	}
}

// sharpEyed removes scent noise so scoring is fully deterministic.
func sharpEyed(extra schemas.TraitVector) schemas.TraitVector {
	tv := schemas.TraitVector{
		schemas.TraitComprehension: 1.0,
		schemas.TraitCuriosity:     0.0,
	}
	for id, v := range extra {
		tv[id] = v
	}
	return tv
}

// forager layers a strong informationForaging trait on sharpEyed so
// selection is a pure argmax.
func forager(extra schemas.TraitVector) schemas.TraitVector {
	tv := sharpEyed(schemas.TraitVector{schemas.TraitInformationForaging: 0.9})
	for id, v := range extra {
		tv[id] = v
	}
	return tv
}

func TestNewPolicy_RejectsBadTuning(t *testing.T) {
	bad := DefaultTuning()
	bad.ArgmaxForaging = 0.2 // below the guessing bound
	_, err := NewPolicy(schemas.TraitVector{}, bad, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestRetryBudget(t *testing.T) {
	tests := []struct {
		persistence float64
		want        int
	}{
		{0.0, 1},
		{0.5, 4},
		{0.9, 7},
		{1.0, 8},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("persistence=%g", tc.persistence), func(t *testing.T) {
			tv := schemas.TraitVector{schemas.TraitPersistence: tc.persistence}
			assert.Equal(t, tc.want, RetryBudget(tv))
		})
	}
}

func TestPolicy_Decide_EmptyObservationAbandons(t *testing.T) {
	p := testPolicy(t, schemas.TraitVector{}, 1)

	var dec schemas.Decision
	assert.NotPanics(t, func() {
		dec = p.Decide(Request{
			Goal:        NewGoal("find pricing"),
			Observation: schemas.Observation{URL: "https://example.test/empty"},
		})
	})

	assert.Equal(t, schemas.DecisionAbandon, dec.Kind)
	assert.Equal(t, schemas.ActionNone, dec.Action)
	assert.Nil(t, dec.Target)
	assert.Zero(t, dec.Confidence)
	assert.NotEmpty(t, dec.Monologue)
	assert.GreaterOrEqual(t, dec.SimSeconds, 0.0)
}

func TestPolicy_Decide_StrongForagerTakesArgmax(t *testing.T) {
	req := Request{
		Goal: NewGoal("find pricing"),
		Observation: schemas.Observation{
			Candidates: []schemas.CandidateElement{
				cand("about", "About us", 0.6),
				cand("pricing", "Pricing", 0.5),
				cand("blog", "Blog", 0.4),
			},
		},
	}

	// An argmax persona must land on the same target whatever the seed.
	for seed := int64(1); seed <= 5; seed++ {
		dec := testPolicy(t, forager(nil), seed).Decide(req)

		require.Equal(t, schemas.DecisionEngage, dec.Kind)
		require.NotNil(t, dec.Target)
		assert.Equal(t, "pricing", dec.Target.Ref)
		assert.Equal(t, schemas.ActionClick, dec.Action)
		// coverage 1.0 * scentMix 0.85 + prominence 0.5 * 0.15
		assert.InDelta(t, 0.925, dec.Confidence, 1e-9)
		require.NotEmpty(t, dec.Scores)
		assert.Equal(t, "pricing", dec.Scores[0].Ref)
	}
}

func TestPolicy_Decide_ProminenceBreaksScoreTies(t *testing.T) {
	// Saturated scores tie at 1.0; the visually heavier element must win
	// even though it appears later.
	tv := forager(schemas.TraitVector{schemas.TraitCuriosity: 1.0})
	p := testPolicy(t, tv, 1)

	dec := p.Decide(Request{
		Goal: NewGoal("pricing"),
		Observation: schemas.Observation{
			Candidates: []schemas.CandidateElement{
				cand("a", "Pricing", 0.8),
				cand("b", "Pricing", 0.95),
			},
		},
	})

	require.NotNil(t, dec.Target)
	assert.Equal(t, "b", dec.Target.Ref)
	assert.Equal(t, 1.0, dec.Confidence)
}

func TestPolicy_Decide_MidForagerSamplesByScent(t *testing.T) {
	// Default informationForaging 0.5 sits in the proportional-sampling band.
	goal := NewGoal("pricing plans")
	obs := schemas.Observation{
		Candidates: []schemas.CandidateElement{
			cand("pricing", "Pricing", 0.4),
			cand("contact", "Contact", 0.3),
			cand("blog", "Blog", 0.2),
		},
	}

	t.Run("DeterministicForFixedSeed", func(t *testing.T) {
		a := testPolicy(t, sharpEyed(nil), 42).Decide(Request{Goal: goal, Observation: obs})
		b := testPolicy(t, sharpEyed(nil), 42).Decide(Request{Goal: goal, Observation: obs})
		assert.Empty(t, cmp.Diff(a, b))
	})

	t.Run("FavorsStrongerScent", func(t *testing.T) {
		wins := 0
		for seed := int64(0); seed < 50; seed++ {
			dec := testPolicy(t, sharpEyed(nil), seed).Decide(Request{Goal: goal, Observation: obs})
			require.Equal(t, schemas.DecisionEngage, dec.Kind)
			if dec.Target.Ref == "pricing" {
				wins++
			}
		}
		// p(pricing) = 0.465/0.64; anything near uniform would sit near 17.
		assert.Greater(t, wins, 25)
	})
}

func TestPolicy_Decide_WeakForagerGuessesWithinWorkingMemory(t *testing.T) {
	// workingMemory 0 caps the consideration set at two candidates.
	tv := sharpEyed(schemas.TraitVector{
		schemas.TraitInformationForaging: 0.2,
		schemas.TraitWorkingMemory:       0.0,
	})

	t.Run("StaysInTopK", func(t *testing.T) {
		obs := schemas.Observation{
			Candidates: []schemas.CandidateElement{
				cand("a", "Gallery", 0.10),
				cand("b", "Archive", 0.10),
				cand("c", "Imprint", 0.10),
			},
		}
		for seed := int64(0); seed < 20; seed++ {
			dec := testPolicy(t, tv, seed).Decide(Request{Goal: NewGoal("pricing"), Observation: obs})
			require.Equal(t, schemas.DecisionEngage, dec.Kind)
			assert.InDelta(t, 0.05, dec.Confidence, 1e-9)
			assert.NotEqual(t, "c", dec.Target.Ref,
				"seed %d picked an option outside the top-K window", seed)
		}
	})

	t.Run("IgnoresScentGradient", func(t *testing.T) {
		// Even a perfect label match gets no special treatment below the
		// guessing bound: both top-K entries must show up across seeds.
		obs := schemas.Observation{
			Candidates: []schemas.CandidateElement{
				cand("pricing", "Pricing", 0.10),
				cand("gallery", "Gallery", 0.10),
			},
		}
		picks := map[string]int{}
		for seed := int64(0); seed < 20; seed++ {
			dec := testPolicy(t, tv, seed).Decide(Request{Goal: NewGoal("pricing"), Observation: obs})
			picks[dec.Target.Ref]++
		}
		assert.Positive(t, picks["pricing"])
		assert.Positive(t, picks["gallery"])
	})
}

func TestPolicy_Decide_PatchLeaving(t *testing.T) {
	p := testPolicy(t, sharpEyed(nil), 1)
	goal := NewGoal("pricing")
	coldPage := schemas.Observation{
		Candidates: []schemas.CandidateElement{cand("about", "About", 0.2)},
	}

	t.Run("LeavesColdPageAfterDwell", func(t *testing.T) {
		// dwell limit at foraging 0.5 is 20s; scent floor is 0.5.
		dec := p.Decide(Request{Goal: goal, Observation: coldPage, DwellSeconds: 25})
		assert.Equal(t, schemas.DecisionLeave, dec.Kind)
		assert.Equal(t, schemas.ActionBack, dec.Action)
		assert.Nil(t, dec.Target)
		assert.NotEmpty(t, dec.Scores)
	})

	t.Run("StaysWhileFresh", func(t *testing.T) {
		dec := p.Decide(Request{Goal: goal, Observation: coldPage, DwellSeconds: 5})
		assert.Equal(t, schemas.DecisionEngage, dec.Kind)
	})

	t.Run("StaysOnStrongScent", func(t *testing.T) {
		hotPage := schemas.Observation{
			Candidates: []schemas.CandidateElement{cand("pricing", "Pricing", 0.5)},
		}
		dec := p.Decide(Request{Goal: goal, Observation: hotPage, DwellSeconds: 25})
		assert.Equal(t, schemas.DecisionEngage, dec.Kind)
	})
}

func TestPolicy_Decide_ReportsBestScent(t *testing.T) {
	goal := NewGoal("pricing")

	t.Run("EngageCarriesStrongestRawScent", func(t *testing.T) {
		obs := schemas.Observation{
			Candidates: []schemas.CandidateElement{
				cand("pricing", "Pricing", 0.5),
				cand("blog", "Blog", 0.2),
			},
		}
		// The best raw scent is pre-noise, so any seed reports the same value:
		// coverage 1.0 * scentMix 0.65 + prominence 0.5 * 0.35 = 0.825.
		for seed := int64(1); seed <= 5; seed++ {
			dec := testPolicy(t, sharpEyed(nil), seed).Decide(Request{Goal: goal, Observation: obs})
			assert.InDelta(t, 0.825, dec.BestScent, 1e-9)
		}
	})

	t.Run("LeaveStillReportsWhatThePageHad", func(t *testing.T) {
		obs := schemas.Observation{
			Candidates: []schemas.CandidateElement{cand("about", "About", 0.2)},
		}
		dec := testPolicy(t, sharpEyed(nil), 1).Decide(Request{Goal: goal, Observation: obs, DwellSeconds: 25})
		require.Equal(t, schemas.DecisionLeave, dec.Kind)
		assert.InDelta(t, 0.07, dec.BestScent, 1e-9)
	})

	t.Run("AbandonReportsZero", func(t *testing.T) {
		dec := testPolicy(t, sharpEyed(nil), 1).Decide(Request{Goal: goal, Observation: schemas.Observation{}})
		require.Equal(t, schemas.DecisionAbandon, dec.Kind)
		assert.Zero(t, dec.BestScent)
	})
}

func TestPolicy_Decide_CuriosityFavorsUnvisited(t *testing.T) {
	goal := NewGoal("docs")
	obs := schemas.Observation{
		Candidates: []schemas.CandidateElement{
			cand("docs", "Docs", 0.3),
			cand("guides", "Docs", 0.3),
		},
	}
	visited := map[string]int{"/docs": 2}

	t.Run("CuriousPersonaExplores", func(t *testing.T) {
		tv := forager(schemas.TraitVector{schemas.TraitCuriosity: 1.0})
		dec := testPolicy(t, tv, 1).Decide(Request{Goal: goal, Observation: obs, Visited: visited})
		require.NotNil(t, dec.Target)
		assert.Equal(t, "guides", dec.Target.Ref)
	})

	t.Run("IncuriousPersonaRetreads", func(t *testing.T) {
		dec := testPolicy(t, forager(nil), 1).Decide(Request{Goal: goal, Observation: obs, Visited: visited})
		require.NotNil(t, dec.Target)
		assert.Equal(t, "docs", dec.Target.Ref, "equal scores fall back to page order")
	})
}

func TestPolicy_ScoreCandidates_DiscountsDeepCommitments(t *testing.T) {
	goal := NewGoal("checkout")
	deep := schemas.CandidateElement{Ref: "funnel", Label: "Checkout", FlowDepth: 3}
	shallow := schemas.CandidateElement{Ref: "hop", Label: "Checkout", FlowDepth: 0}
	req := func() Request {
		return Request{Goal: goal, Observation: schemas.Observation{
			Candidates: []schemas.CandidateElement{deep, shallow},
		}}
	}

	score := func(timeHorizon float64) (deepScore, shallowScore float64) {
		tv := sharpEyed(schemas.TraitVector{schemas.TraitTimeHorizon: timeHorizon})
		p := testPolicy(t, tv, 1)
		for _, s := range p.scoreCandidates(req()) {
			switch s.candidate.Ref {
			case "funnel":
				deepScore = s.score
			case "hop":
				shallowScore = s.score
			}
		}
		return deepScore, shallowScore
	}

	t.Run("PresentBiasPenalizesDepth", func(t *testing.T) {
		deepScore, shallowScore := score(0.0)
		assert.Less(t, deepScore, shallowScore)
		// beta=0.55, delta=0.85: multiplier 0.55*0.85^3
		assert.InDelta(t, shallowScore*0.55*math.Pow(0.85, 3), deepScore, 1e-9)
	})

	t.Run("LongHorizonSoftensDiscount", func(t *testing.T) {
		nowFocusedDeep, _ := score(0.0)
		farSightedDeep, _ := score(1.0)
		assert.Greater(t, farSightedDeep, nowFocusedDeep)
	})
}

func TestPolicy_Decide_TypesIntoInputs(t *testing.T) {
	p := testPolicy(t, forager(nil), 1)

	searchBox := schemas.CandidateElement{
		Ref:        "q",
		Label:      "Search our widget catalog",
		Role:       schemas.RoleInput,
		Prominence: 0.6,
	}
	dec := p.Decide(Request{
		Goal:        NewGoal("search widgets"),
		Observation: schemas.Observation{Candidates: []schemas.CandidateElement{searchBox}},
	})

	require.Equal(t, schemas.DecisionEngage, dec.Kind)
	assert.Equal(t, schemas.ActionType, dec.Action)
	assert.Equal(t, "search widgets", dec.TypedText)
}

func TestPolicy_Decide_TraceScoresCapped(t *testing.T) {
	p := testPolicy(t, schemas.TraitVector{}, 1)

	var cands []schemas.CandidateElement
	for i := 0; i < 15; i++ {
		cands = append(cands, cand(fmt.Sprintf("c%d", i), fmt.Sprintf("Link %d", i), 0.3))
	}
	dec := p.Decide(Request{
		Goal:        NewGoal("pricing"),
		Observation: schemas.Observation{Candidates: cands},
	})

	assert.Len(t, dec.Scores, DefaultTuning().TraceScoreLimit)
}

func TestPolicy_Decide_DeterministicAcrossRuns(t *testing.T) {
	goal := NewGoal("compare pricing plans")
	obs := schemas.Observation{
		Candidates: []schemas.CandidateElement{
			cand("pricing", "Plans", 0.5),
			cand("features", "Features", 0.6),
			cand("contact", "Talk to sales", 0.3),
		},
		Content: []schemas.ContentBlock{
			{Kind: schemas.ContentParagraph, Text: "Compare what each tier includes."},
		},
	}
	req := Request{Goal: goal, Observation: obs, Visited: map[string]int{"/features": 1}}

	// Low comprehension keeps noise in play; the seed must still pin the
	// full decision, scores included.
	tv := schemas.TraitVector{schemas.TraitComprehension: 0.2}
	a := testPolicy(t, tv, 99).Decide(req)
	b := testPolicy(t, tv, 99).Decide(req)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestPolicy_ReadCostScalesWithTraits(t *testing.T) {
	content := []schemas.ContentBlock{
		{Kind: schemas.ContentParagraph, Text: "one two three four five six seven eight nine ten"},
	}

	slow := testPolicy(t, schemas.TraitVector{schemas.TraitReadingSpeed: 0.0}, 1)
	fast := testPolicy(t, schemas.TraitVector{schemas.TraitReadingSpeed: 1.0}, 1)
	assert.Greater(t, slow.readCost(content), fast.readCost(content))

	skimmer := testPolicy(t, schemas.TraitVector{schemas.TraitPlanningDepth: 0.0}, 1)
	planner := testPolicy(t, schemas.TraitVector{schemas.TraitPlanningDepth: 1.0}, 1)
	assert.Less(t, skimmer.readCost(content), planner.readCost(content))
}

func TestMonologue_EmotionalColoring(t *testing.T) {
	calm := schemas.StateSnapshot{Patience: 1, Trust: 0.5}
	fraught := schemas.StateSnapshot{
		Patience:    0.1,
		Confusion:   0.9,
		Frustration: 0.9,
		Trust:       0.1,
	}

	t.Run("CalmStateKeepsItShort", func(t *testing.T) {
		m := engageMonologue(0.9, "Pricing", calm)
		assert.Contains(t, m, "looks exactly right")
		assert.NotContains(t, m, "annoy")
	})

	t.Run("FraughtStateShowsEverywhere", func(t *testing.T) {
		m := engageMonologue(0.05, "Pricing", fraught)
		assert.Contains(t, m, "hoping")
		assert.Contains(t, m, "annoy")
		assert.Contains(t, m, "not sure where I am")
		assert.Contains(t, m, "don't have all day")
		assert.Contains(t, m, "feels off")
	})
}
