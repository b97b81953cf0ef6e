package journey

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/persona"
)

// fakeExplorer serves scripted observations in order (the last one repeats)
// and answers actions through a pluggable function.
type fakeExplorer struct {
	pages      []schemas.Observation
	observeErr error
	act        func(call int, req schemas.ActionRequest) (schemas.ActionOutcome, error)

	observeCalls int
	actCalls     []schemas.ActionRequest
}

func (f *fakeExplorer) Observe(ctx context.Context) (schemas.Observation, error) {
	i := f.observeCalls
	f.observeCalls++
	if f.observeErr != nil {
		return schemas.Observation{}, f.observeErr
	}
	if i >= len(f.pages) {
		i = len(f.pages) - 1
	}
	return f.pages[i], nil
}

func (f *fakeExplorer) Act(ctx context.Context, req schemas.ActionRequest) (schemas.ActionOutcome, error) {
	call := len(f.actCalls)
	f.actCalls = append(f.actCalls, req)
	if f.act != nil {
		return f.act(call, req)
	}
	return schemas.ActionOutcome{Success: true, PageChanged: true, LatencyMS: 200}, nil
}

func fixedClock() func() time.Time {
	at := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return New(zaptest.NewLogger(t), DefaultTunings(), fixedClock())
}

func testProfile(tv schemas.TraitVector) persona.Profile {
	return persona.Profile{Name: "lab-rat", Traits: tv}
}

func testConfig(goal string) schemas.JourneyConfig {
	return schemas.JourneyConfig{
		Persona:    "lab-rat",
		Goal:       goal,
		StartURL:   "https://shop.test/",
		RandomSeed: 7,
	}
}

func link(ref, label string, prominence float64) schemas.CandidateElement {
	return schemas.CandidateElement{
		Ref:        ref,
		Label:      label,
		Role:       schemas.RoleLink,
		Prominence: prominence,
		Href:       "/" + ref,
	}
}

func page(fp string, cands ...schemas.CandidateElement) schemas.Observation {
	return schemas.Observation{
		URL:         "https://shop.test/" + fp,
		Title:       strings.ToUpper(fp[:1]) + fp[1:],
		Fingerprint: fp,
		Candidates:  cands,
	}
}

func TestRun_RejectsBadConfig(t *testing.T) {
	o := testOrchestrator(t)
	exp := &fakeExplorer{pages: []schemas.Observation{page("home", link("a", "A", 0.5))}}

	t.Run("EmptyGoal", func(t *testing.T) {
		cfg := testConfig("")
		res, err := o.Run(context.Background(), testProfile(nil), cfg, exp)
		assert.Error(t, err)
		assert.Nil(t, res)
		assert.Zero(t, exp.observeCalls, "nothing may run on a rejected config")
	})

	t.Run("NilExplorer", func(t *testing.T) {
		res, err := o.Run(context.Background(), testProfile(nil), testConfig("find pricing"), nil)
		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestRun_PatienceDepletion(t *testing.T) {
	// A persona on a hair trigger wandering pages where nothing smells like
	// the goal must give up on patience within three steps, even though every
	// click lands cleanly.
	tv := schemas.TraitVector{schemas.TraitPatience: 0.05}
	var maze []schemas.Observation
	for i := 1; i <= 4; i++ {
		maze = append(maze, page(fmt.Sprintf("maze%d", i),
			link(fmt.Sprintf("a%d", i), "Lorem", 0.15),
			link(fmt.Sprintf("b%d", i), "Ipsum", 0.15),
			link(fmt.Sprintf("c%d", i), "Dolor", 0.15),
		))
	}
	exp := &fakeExplorer{
		pages: maze,
		act: func(int, schemas.ActionRequest) (schemas.ActionOutcome, error) {
			return schemas.ActionOutcome{Success: true, PageChanged: true, LatencyMS: 600}, nil
		},
	}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find the pricing page"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonPatienceDepleted, res.Reason)
	assert.False(t, res.GoalReached)
	assert.LessOrEqual(t, len(res.Steps), 3)
	assert.Less(t, res.FinalState.Patience, 0.1)
	assert.Equal(t, schemas.PhaseTerminated, res.FinalState.Phase)
}

func TestRun_HighComprehensionEfficiency(t *testing.T) {
	// A sharp, scent-following persona landing directly on the goal page
	// finishes in one clean step.
	tv := schemas.TraitVector{
		schemas.TraitComprehension:       0.9,
		schemas.TraitInformationForaging: 0.9,
	}
	target := page("pricing",
		link("plans", "Pricing plans", 0.6),
		link("about", "About us", 0.4),
	)
	target.GoalSignal = true
	exp := &fakeExplorer{pages: []schemas.Observation{target}}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find the pricing plans"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonGoalReached, res.Reason)
	assert.True(t, res.GoalReached)
	require.Len(t, res.Steps, 1)
	assert.Zero(t, res.Steps[0].Retries)
	assert.Equal(t, "plans", res.Steps[0].Decision.Target.Ref)
}

func TestRun_LoopDetection(t *testing.T) {
	// The same fingerprint three times in a row must end the journey on the
	// third repeat, not the second, not the fourth.
	tv := schemas.TraitVector{schemas.TraitCuriosity: 0}
	trap := page("trap", link("next", "Continue", 0.5))
	exp := &fakeExplorer{
		pages: []schemas.Observation{trap},
		act: func(int, schemas.ActionRequest) (schemas.ActionOutcome, error) {
			// The click lands but the page never actually changes.
			return schemas.ActionOutcome{Success: true, PageChanged: false, LatencyMS: 100}, nil
		},
	}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("reach the exit"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonStuckInLoop, res.Reason)
	assert.Len(t, res.Steps, 3)

	revisits := 0
	for _, f := range res.Friction {
		if f.Kind == schemas.FrictionRevisit {
			revisits++
		}
	}
	assert.Equal(t, 2, revisits, "visits two and three are friction")
}

func TestRun_RetryChurnEndsInFrustration(t *testing.T) {
	// Low persistence grants two retries per step; with everything timing
	// out, frustration boils over on the second step.
	tv := schemas.TraitVector{
		schemas.TraitPersistence:  0.2,
		schemas.TraitResilience:   0.0,
		schemas.TraitDecisiveness: 1.0,
	}
	form := page("signup",
		link("a", "Gallery", 0.2),
		link("b", "Archive", 0.2),
		link("c", "Imprint", 0.2),
	)
	exp := &fakeExplorer{
		pages: []schemas.Observation{form},
		act: func(int, schemas.ActionRequest) (schemas.ActionOutcome, error) {
			return schemas.ActionOutcome{Success: false, Error: schemas.ActionErrTimeout}, nil
		},
	}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find the signup form"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonTooFrustrated, res.Reason)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, 2, res.Steps[0].Retries)
	require.NotNil(t, res.Steps[0].Outcome)
	assert.False(t, res.Steps[0].Outcome.Success)

	kinds := map[schemas.FrictionKind]bool{}
	for _, f := range res.Friction {
		kinds[f.Kind] = true
	}
	assert.True(t, kinds[schemas.FrictionRetryChurn], "retry churn must be flagged")
	assert.True(t, kinds[schemas.FrictionFrustrationSpike], "frustration spike must be flagged")
	assert.True(t, kinds[schemas.FrictionConfusionSpike], "confusion spike must be flagged")
}

func TestRun_CancellationAtStepBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var pages []schemas.Observation
	for i := 0; i < 30; i++ {
		pages = append(pages, page(fmt.Sprintf("p%d", i), link("next", "Next page", 0.5)))
	}
	exp := &fakeExplorer{
		pages: pages,
		act: func(call int, _ schemas.ActionRequest) (schemas.ActionOutcome, error) {
			if call == 1 {
				// Cancel mid-step: the step must still complete.
				cancel()
			}
			return schemas.ActionOutcome{Success: true, PageChanged: true}, nil
		},
	}

	res, err := testOrchestrator(t).Run(ctx, testProfile(nil), testConfig("find something obscure"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonBudgetExhausted, res.Reason)
	assert.Len(t, res.Steps, 2, "the in-flight step finishes; no new step starts")
	assert.Equal(t, schemas.PhaseTerminated, res.FinalState.Phase)
	assert.False(t, res.FinishedAt.IsZero())
}

func TestRun_MaxStepsBudget(t *testing.T) {
	var pages []schemas.Observation
	for i := 0; i < 30; i++ {
		pages = append(pages, page(fmt.Sprintf("p%d", i), link("next", "Next page", 0.5)))
	}
	exp := &fakeExplorer{pages: pages}

	cfg := testConfig("find something that does not exist")
	cfg.MaxSteps = 5

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(nil), cfg, exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonBudgetExhausted, res.Reason)
	assert.Len(t, res.Steps, 5, "the loop never runs past max steps")
}

func TestRun_SimTimeBudget(t *testing.T) {
	// One 400-word wall of text costs ~55 simulated seconds to read, blowing
	// a 30-second budget on the first step.
	wall := page("p0", link("next", "Next page", 0.5))
	wall.Content = []schemas.ContentBlock{
		{Kind: schemas.ContentParagraph, Text: strings.TrimSpace(strings.Repeat("verbiage ", 400))},
	}
	next := page("p1", link("next", "Next page", 0.5))
	exp := &fakeExplorer{pages: []schemas.Observation{wall, next}}

	cfg := testConfig("find something that does not exist")
	cfg.MaxTime = 30 * time.Second

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(nil), cfg, exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonBudgetExhausted, res.Reason)
	assert.Len(t, res.Steps, 1)
	assert.GreaterOrEqual(t, res.SimDuration, 30.0)
}

func TestRun_ObserveErrorsAreNotFatal(t *testing.T) {
	// A blind explorer never errors the run; the persona sees an empty page,
	// abandons, and that abandonment is the journey's one terminal outcome.
	exp := &fakeExplorer{observeErr: fmt.Errorf("devtools target crashed")}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(nil), testConfig("find pricing"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonNothingActionable, res.Reason)
	assert.False(t, res.GoalReached)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, schemas.DecisionAbandon, res.Steps[0].Decision.Kind)
	assert.Nil(t, res.Steps[0].Outcome)
	assert.Equal(t, schemas.PhaseTerminated, res.FinalState.Phase)
}

func TestRun_ExhaustedCandidatesAbandon(t *testing.T) {
	// Once every candidate has been tried and dropped, the abandon decision
	// ends the journey with a machine-readable reason instead of looping.
	tv := schemas.TraitVector{schemas.TraitPersistence: 0.5} // budget 4
	deadEnd := page("deadend",
		link("a", "Gallery", 0.2),
		link("b", "Archive", 0.2),
	)
	exp := &fakeExplorer{
		pages: []schemas.Observation{deadEnd},
		act: func(int, schemas.ActionRequest) (schemas.ActionOutcome, error) {
			return schemas.ActionOutcome{Success: false, Error: schemas.ActionErrDetached}, nil
		},
	}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find the checkout"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonNothingActionable, res.Reason)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, schemas.DecisionAbandon, res.Steps[0].Decision.Kind)
	assert.Equal(t, 2, res.Steps[0].Retries, "both candidates get one attempt")
	assert.Len(t, exp.actCalls, 2)
}

func TestRun_RetryLatencyChargedToSimTime(t *testing.T) {
	// Failed attempts consume simulated time too: two 60-second timeouts must
	// show up in the journey's simulated duration.
	tv := schemas.TraitVector{schemas.TraitPersistence: 0.5}
	slow := page("slow",
		link("a", "Gallery", 0.2),
		link("b", "Archive", 0.2),
	)
	exp := &fakeExplorer{
		pages: []schemas.Observation{slow},
		act: func(int, schemas.ActionRequest) (schemas.ActionOutcome, error) {
			return schemas.ActionOutcome{Success: false, Error: schemas.ActionErrTimeout, LatencyMS: 60_000}, nil
		},
	}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find the checkout"), exp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.SimDuration, 120.0)
}

func TestRun_InterruptPausesAndResumes(t *testing.T) {
	tv := schemas.TraitVector{schemas.TraitInterruptRecovery: 0.5}

	distracted := page("home", link("pricing", "Pricing", 0.6))
	distracted.Interrupt = &schemas.InterruptSignal{Kind: schemas.InterruptFocusLoss, SimSeconds: 30}
	target := page("pricing", link("plans", "Plans", 0.5))
	target.GoalSignal = true
	exp := &fakeExplorer{pages: []schemas.Observation{distracted, target}}

	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), testConfig("find pricing"), exp)
	require.NoError(t, err)

	assert.Equal(t, schemas.ReasonGoalReached, res.Reason)
	assert.Greater(t, res.SimDuration, 30.0, "the pause is charged to simulated time")
	assert.Greater(t, res.Steps[0].State.Confusion, 0.0, "resuming costs context")
}

func TestRun_DeterministicForFixedSeed(t *testing.T) {
	tv := schemas.TraitVector{
		schemas.TraitComprehension: 0.3,
		schemas.TraitCuriosity:     0.7,
		schemas.TraitPersistence:   0.6,
	}

	script := func() *fakeExplorer {
		home := page("home",
			link("docs", "Documentation", 0.55),
			link("pricing", "Pricing", 0.45),
			link("blog", "Blog", 0.35),
		)
		home.Content = []schemas.ContentBlock{{Kind: schemas.ContentParagraph, Text: "Welcome to the shop."}}
		plans := page("plans",
			link("tiers", "Compare tiers", 0.5),
			link("trial", "Start trial", 0.6),
		)
		goalPage := page("tiers", link("enterprise", "Enterprise", 0.4))
		goalPage.GoalSignal = true

		return &fakeExplorer{
			pages: []schemas.Observation{home, plans, goalPage},
			act: func(call int, _ schemas.ActionRequest) (schemas.ActionOutcome, error) {
				if call == 1 {
					return schemas.ActionOutcome{Success: false, Error: schemas.ActionErrDetached, LatencyMS: 150}, nil
				}
				return schemas.ActionOutcome{Success: true, PageChanged: true, LatencyMS: 250}, nil
			},
		}
	}

	cfg := testConfig("compare pricing tiers")
	cfg.RandomSeed = 1234

	o := testOrchestrator(t)
	a, err := o.Run(context.Background(), testProfile(tv), cfg, script())
	require.NoError(t, err)
	b, err := o.Run(context.Background(), testProfile(tv), cfg, script())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b), "identical seed and script must reproduce the trace byte for byte")
	assert.Equal(t, schemas.ReasonGoalReached, a.Reason)
	assert.Len(t, a.Steps, 3)
	assert.Equal(t, a.JourneyID, b.JourneyID, "journey identity is derived, not random")
}

func TestRun_ResultCarriesRunIdentity(t *testing.T) {
	tv := schemas.TraitVector{schemas.TraitInformationForaging: 0.9}
	target := page("pricing", link("plans", "Plans", 0.5))
	target.GoalSignal = true
	exp := &fakeExplorer{pages: []schemas.Observation{target}}

	cfg := testConfig("find pricing")
	res, err := testOrchestrator(t).Run(context.Background(), testProfile(tv), cfg, exp)
	require.NoError(t, err)

	assert.NotEmpty(t, res.JourneyID)
	assert.Equal(t, "lab-rat", res.Persona)
	assert.Equal(t, cfg.Goal, res.Goal)
	assert.Equal(t, cfg.StartURL, res.StartURL)
	assert.Equal(t, cfg.RandomSeed, res.Seed)
	assert.Equal(t, 0.9, res.Traits[schemas.TraitInformationForaging])
	assert.False(t, res.StartedAt.IsZero())
	assert.False(t, res.FinishedAt.IsZero())
}
