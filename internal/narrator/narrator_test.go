package narrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/config"
)

func traceForPrompt() *schemas.JourneyResult {
	return &schemas.JourneyResult{
		JourneyID: "journey-abc",
		Persona:   "careful-novice",
		Goal:      "find the return policy",
		StartURL:  "https://shop.example.com",
		Reason:    schemas.ReasonTooConfused,
		Steps: []schemas.StepRecord{
			{
				Index: 0,
				URL:   "https://shop.example.com",
				Decision: schemas.Decision{
					Kind:      schemas.DecisionEngage,
					Action:    schemas.ActionClick,
					Target:    &schemas.CandidateElement{Ref: "mnd-2", Label: "Help\nCenter"},
					Monologue: "Help sounds promising.",
				},
			},
			{
				Index: 1,
				URL:   "https://shop.example.com/help",
				Decision: schemas.Decision{
					Kind:   schemas.DecisionLeave,
					Action: schemas.ActionBack,
				},
			},
		},
		Friction: []schemas.FrictionPoint{
			{StepIndex: 1, Kind: schemas.FrictionConfusionSpike, Note: "wall of unrelated FAQ links"},
		},
		SimDuration: 95,
	}
}

func TestNew_DisabledConfig(t *testing.T) {
	n, err := New(context.Background(), config.NarratorConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, n.Enabled())

	_, err = n.Narrate(context.Background(), traceForPrompt())
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, n.Close())
}

func TestNew_EnabledRequiresModelAndKey(t *testing.T) {
	_, err := New(context.Background(), config.NarratorConfig{
		Enabled: true,
		APIKey:  "key",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")

	_, err = New(context.Background(), config.NarratorConfig{
		Enabled: true,
		Model:   "gemini-2.5-flash",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNarrate_RejectsNilResult(t *testing.T) {
	n, err := New(context.Background(), config.NarratorConfig{}, nil)
	require.NoError(t, err)

	_, err = n.Narrate(context.Background(), nil)
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(traceForPrompt())

	assert.Contains(t, prompt, narrativeInstructions)
	assert.Contains(t, prompt, `Persona "careful-novice" set out to "find the return policy"`)
	assert.Contains(t, prompt, "gave up after 2 steps and 95 simulated seconds (too_confused)")
	assert.Contains(t, prompt, `1. on https://shop.example.com: engage "Help Center" (thinking: Help sounds promising.)`)
	assert.Contains(t, prompt, "2. on https://shop.example.com/help: leave")
	assert.Contains(t, prompt, "- step 2: confusion_spike (wall of unrelated FAQ links)")
	assert.NotContains(t, prompt, "omitted")
}

func TestBuildPrompt_SuccessPhrasing(t *testing.T) {
	res := traceForPrompt()
	res.GoalReached = true
	res.Reason = schemas.ReasonGoalReached

	prompt := buildPrompt(res)
	assert.Contains(t, prompt, "reached the goal after 2 steps")
	assert.NotContains(t, prompt, "gave up")
}

func TestBuildPrompt_CapsLongTraces(t *testing.T) {
	res := traceForPrompt()
	res.Steps = nil
	for i := 0; i < maxTraceSteps+7; i++ {
		res.Steps = append(res.Steps, schemas.StepRecord{
			Index: i,
			URL:   "https://shop.example.com/p",
			Decision: schemas.Decision{
				Kind:   schemas.DecisionEngage,
				Action: schemas.ActionScroll,
			},
		})
	}

	prompt := buildPrompt(res)
	assert.Contains(t, prompt, "... 7 later steps omitted ...")
	assert.Equal(t, maxTraceSteps, strings.Count(prompt, "on https://shop.example.com/p"))
}

func TestNarrate_HonorsTimeoutConfig(t *testing.T) {
	// A disabled narrator must short-circuit before any timeout plumbing.
	n, err := New(context.Background(), config.NarratorConfig{
		Enabled:    false,
		APITimeout: time.Nanosecond,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = n.Narrate(context.Background(), traceForPrompt())
	assert.ErrorIs(t, err, ErrDisabled)
}
