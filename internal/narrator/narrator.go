// Package narrator turns a finished journey trace into a short first-person
// story via the Gemini API. It runs strictly after the deterministic engine:
// the trace is already complete and the narrative is presentation only.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/config"
)

// ErrDisabled is returned by Narrate when the narrator was not configured.
var ErrDisabled = errors.New("narrator: disabled")

const narrativeInstructions = `You are a UX researcher writing up a usability session.
Rewrite the following simulated browsing trace as a short first-person story
(two or three paragraphs) from the persona's point of view. Stay faithful to
the trace: do not invent pages, clicks, or feelings it does not support.
Plain prose, no headings, no bullet points.`

// maxTraceSteps bounds the prompt for very long journeys.
const maxTraceSteps = 40

// Narrator embellishes finished traces. The zero value is unusable; construct
// with New.
type Narrator struct {
	cfg    config.NarratorConfig
	client *genai.Client
	logger *zap.Logger
}

// New builds a narrator from config. A disabled config yields a narrator
// whose Narrate returns ErrDisabled; an enabled config requires a model and
// an API key.
func New(ctx context.Context, cfg config.NarratorConfig, logger *zap.Logger) (*Narrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("narrator")

	if !cfg.Enabled {
		return &Narrator{cfg: cfg, logger: logger}, nil
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("narrator: model is required when enabled")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("narrator: API key is required when enabled")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("narrator: creating genai client: %w", err)
	}

	return &Narrator{cfg: cfg, client: client, logger: logger}, nil
}

// Enabled reports whether Narrate will actually call the model.
func (n *Narrator) Enabled() bool {
	return n.client != nil
}

// Narrate generates the story for one finished journey.
func (n *Narrator) Narrate(ctx context.Context, res *schemas.JourneyResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("narrator: cannot narrate a nil journey result")
	}
	if !n.Enabled() {
		return "", ErrDisabled
	}

	if n.cfg.APITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.APITimeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(res), genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{}
	if n.cfg.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(n.cfg.Temperature)
	}

	start := time.Now()
	resp, err := n.client.Models.GenerateContent(ctx, n.cfg.Model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("narrator: generating narrative: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("narrator: model returned an empty narrative")
	}

	n.logger.Info("narrative generated",
		zap.String("journeyID", res.JourneyID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// buildPrompt flattens the trace into the prompt the model sees.
func buildPrompt(res *schemas.JourneyResult) string {
	var b strings.Builder
	b.WriteString(narrativeInstructions)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Persona %q set out to %q starting at %s.\n", res.Persona, res.Goal, res.StartURL)
	if res.GoalReached {
		fmt.Fprintf(&b, "They reached the goal after %d steps and %.0f simulated seconds.\n", len(res.Steps), res.SimDuration)
	} else {
		fmt.Fprintf(&b, "They gave up after %d steps and %.0f simulated seconds (%s).\n", len(res.Steps), res.SimDuration, res.Reason)
	}

	b.WriteString("\nTrace:\n")
	steps := res.Steps
	omitted := 0
	if len(steps) > maxTraceSteps {
		omitted = len(steps) - maxTraceSteps
		steps = steps[:maxTraceSteps]
	}
	for _, step := range steps {
		target := ""
		if step.Decision.Target != nil {
			target = " " + quoteLabel(step.Decision.Target.Label)
		}
		fmt.Fprintf(&b, "%d. on %s: %s%s", step.Index+1, step.URL, step.Decision.Kind, target)
		if m := strings.TrimSpace(step.Decision.Monologue); m != "" {
			fmt.Fprintf(&b, " (thinking: %s)", m)
		}
		b.WriteString("\n")
	}
	if omitted > 0 {
		fmt.Fprintf(&b, "... %d later steps omitted ...\n", omitted)
	}

	if len(res.Friction) > 0 {
		b.WriteString("\nRough spots:\n")
		for _, f := range res.Friction {
			if f.Note != "" {
				fmt.Fprintf(&b, "- step %d: %s (%s)\n", f.StepIndex+1, f.Kind, f.Note)
			} else {
				fmt.Fprintf(&b, "- step %d: %s\n", f.StepIndex+1, f.Kind)
			}
		}
	}

	return b.String()
}

// quoteLabel quotes a label for the prompt, keeping it on one line.
func quoteLabel(label string) string {
	label = strings.ReplaceAll(label, "\n", " ")
	return fmt.Sprintf("%q", label)
}

// Close is a no-op today: the genai client holds no connection that needs
// releasing, but callers already treat the narrator as a closer.
func (n *Narrator) Close() error {
	return nil
}
