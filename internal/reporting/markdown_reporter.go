// internal/reporting/markdown_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/observability"
)

// MarkdownReporter renders journeys as human-readable Markdown: a metadata
// block, a per-step table, flagged friction points, and the persona's final
// thoughts. It is thread safe.
type MarkdownReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu      sync.Mutex
	results []*schemas.JourneyResult
}

// NewMarkdownReporter creates a reporter that takes ownership of the writer.
func NewMarkdownReporter(writer io.WriteCloser) *MarkdownReporter {
	return &MarkdownReporter{
		writer: writer,
		logger: observability.GetLogger().Named("markdown_reporter"),
	}
}

// Write buffers one journey result.
func (r *MarkdownReporter) Write(result *schemas.JourneyResult) error {
	if result == nil {
		return fmt.Errorf("cannot report a nil journey result")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

// Close renders the buffered journeys and closes the output writer.
func (r *MarkdownReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for i, res := range r.results {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		renderJourney(&b, res)
	}

	_, writeErr := io.WriteString(r.writer, b.String())
	// Always attempt to close the writer, regardless of rendering success.
	closeErr := r.writer.Close()

	if writeErr != nil {
		r.logger.Error("Failed to write Markdown report", zap.Error(writeErr))
		return fmt.Errorf("failed to write Markdown report: %w", writeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote Markdown journey report", zap.Int("journeys", len(r.results)))
	return nil
}

func renderJourney(b *strings.Builder, res *schemas.JourneyResult) {
	fmt.Fprintf(b, "# Journey: %s\n\n", res.Goal)

	outcome := "gave up"
	if res.GoalReached {
		outcome = "reached the goal"
	}
	fmt.Fprintf(b, "- **Journey ID:** `%s`\n", res.JourneyID)
	fmt.Fprintf(b, "- **Persona:** %s (seed %d)\n", res.Persona, res.Seed)
	fmt.Fprintf(b, "- **Start URL:** %s\n", res.StartURL)
	fmt.Fprintf(b, "- **Outcome:** %s (`%s`)\n", outcome, res.Reason)
	fmt.Fprintf(b, "- **Steps:** %d over %.1f simulated seconds\n\n", len(res.Steps), res.SimDuration)

	b.WriteString("## Steps\n\n")
	if len(res.Steps) == 0 {
		b.WriteString("The journey ended before any step completed.\n\n")
	} else {
		b.WriteString("| # | Decision | Action | Target | Confidence | Sim s | Patience | Confusion | Frustration |\n")
		b.WriteString("|--:|----------|--------|--------|-----------:|------:|---------:|----------:|------------:|\n")
		for _, step := range res.Steps {
			target := "-"
			if step.Decision.Target != nil {
				target = tableCell(step.Decision.Target.Label)
			}
			action := string(step.Decision.Action)
			if action == "" {
				action = "-"
			}
			fmt.Fprintf(b, "| %d | %s | %s | %s | %.2f | %.1f | %.2f | %.2f | %.2f |\n",
				step.Index, step.Decision.Kind, action, target,
				step.Decision.Confidence, step.Decision.SimSeconds,
				step.State.Patience, step.State.Confusion, step.State.Frustration)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Friction\n\n")
	if len(res.Friction) == 0 {
		b.WriteString("No friction points were flagged.\n\n")
	} else {
		for _, f := range res.Friction {
			if f.Note != "" {
				fmt.Fprintf(b, "- step %d: %s (%s)\n", f.StepIndex, f.Kind, f.Note)
			} else {
				fmt.Fprintf(b, "- step %d: %s\n", f.StepIndex, f.Kind)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Final thoughts\n\n")
	if thought := finalThought(res); thought != "" {
		fmt.Fprintf(b, "> %s\n", thought)
	} else {
		b.WriteString("> (the persona left without a word)\n")
	}

	if res.Narrative != "" {
		b.WriteString("\n## Narrative\n\n")
		b.WriteString(res.Narrative)
		b.WriteString("\n")
	}
}

// finalThought returns the last non-empty monologue in the trace.
func finalThought(res *schemas.JourneyResult) string {
	for i := len(res.Steps) - 1; i >= 0; i-- {
		if m := strings.TrimSpace(res.Steps[i].Decision.Monologue); m != "" {
			return m
		}
	}
	return ""
}

// tableCell makes arbitrary label text safe inside a Markdown table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if s == "" {
		return "-"
	}
	return s
}
