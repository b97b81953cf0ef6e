// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/fixture"
	"github.com/xkilldash9x/meander-cli/internal/journey"
	"github.com/xkilldash9x/meander-cli/internal/narrator"
	"github.com/xkilldash9x/meander-cli/internal/observability"
	"github.com/xkilldash9x/meander-cli/internal/reporting"
)

// newRunCmd creates the `run` command: one persona, one goal, one journey.
func newRunCmd(a *app) *cobra.Command {
	var (
		personaName string
		traitFlags  []string
		goal        string
		startURL    string
		fixturePath string
		goalURL     string
		maxSteps    int
		maxTime     time.Duration
		seed        int64
		output      string
		format      string
		save        bool
		record      string
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulated journey and report how it went",
		Example: `  meander run --persona skimmer --goal "find pricing" --url https://example.com
  meander run --persona custom --trait patience=0.2 --trait comprehension=0.9 \
      --goal "sign up for the newsletter" --fixture testdata/landing.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := observability.GetLogger()

			overrides, err := parseTraitOverrides(traitFlags)
			if err != nil {
				return err
			}
			profile, err := a.buildProfile(personaName, overrides)
			if err != nil {
				return err
			}

			exp, resolvedURL, cleanup, err := a.openExplorer(ctx, log, explorerSpec{
				fixturePath: fixturePath,
				startURL:    startURL,
				goalURL:     goalURL,
			})
			if err != nil {
				return err
			}
			defer cleanup()

			var recorder *fixture.Recorder
			if record != "" {
				recorder = fixture.NewRecorder(exp, profile.Name+" journey")
				exp = recorder
			}

			jcfg := a.journeyConfig(profile.Name, goal, resolvedURL, maxSteps, maxTime, seed)
			orch := journey.New(log, a.cfg.Simulation.Tuning, nil)
			result, err := orch.Run(ctx, profile, jcfg, exp)
			if err != nil {
				return err
			}

			a.narrate(ctx, log, result)

			if recorder != nil {
				if err := saveScript(recorder.Script(), record); err != nil {
					return err
				}
				log.Info("recorded journey script", zap.String("path", record))
			}

			if save {
				st, closeStore, err := a.openStore(ctx, log)
				if err != nil {
					return err
				}
				defer closeStore()
				if err := st.SaveResult(ctx, result); err != nil {
					return err
				}
				log.Info("journey archived", zap.String("journeyID", result.JourneyID))
			}

			return writeReports(a.reportFormat(format), output, result)
		},
	}

	runCmd.Flags().StringVarP(&personaName, "persona", "p", "first-timer", "persona template name, or \"custom\" to build purely from --trait flags")
	runCmd.Flags().StringArrayVar(&traitFlags, "trait", nil, "trait override as traitId=value, repeatable")
	runCmd.Flags().StringVarP(&goal, "goal", "g", "", "what the simulated user is trying to accomplish (required)")
	runCmd.Flags().StringVarP(&startURL, "url", "u", "", "start URL for a live browser journey")
	runCmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "recorded journey script to replay instead of a live browser")
	runCmd.Flags().StringVar(&goalURL, "goal-url", "", "URL fragment that positively confirms the goal page (live runs)")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget (default from config)")
	runCmd.Flags().DurationVar(&maxTime, "max-time", 0, "simulated-time budget, e.g. 300s (default from config)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for a reproducible run (0 picks one and records it)")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "report path (default stdout)")
	runCmd.Flags().StringVar(&format, "format", "", "report format: json, markdown, or both (default from config)")
	runCmd.Flags().BoolVar(&save, "save", false, "archive the result in the journey store")
	runCmd.Flags().StringVar(&record, "record", "", "write a replayable fixture script of this journey to the given path")
	runCmd.MarkFlagRequired("goal")

	return runCmd
}

// journeyConfig folds flags over the configured simulation budgets.
func (a *app) journeyConfig(personaName, goal, startURL string, maxSteps int, maxTime time.Duration, seed int64) schemas.JourneyConfig {
	if maxSteps <= 0 {
		maxSteps = a.cfg.Simulation.MaxSteps
	}
	if maxTime <= 0 {
		maxTime = a.cfg.Simulation.MaxTime
	}
	return schemas.JourneyConfig{
		Persona:    personaName,
		Goal:       goal,
		StartURL:   startURL,
		MaxSteps:   maxSteps,
		MaxTime:    maxTime,
		RandomSeed: resolveSeed(seed, a.cfg.Simulation.Seed),
	}
}

// narrate runs the optional LLM embellishment pass. Narration failures are
// logged and swallowed: the structured trace is the deliverable, the story
// is garnish.
func (a *app) narrate(ctx context.Context, log *zap.Logger, result *schemas.JourneyResult) {
	if !a.cfg.Narrator.Enabled {
		return
	}
	n, err := narrator.New(ctx, a.cfg.Narrator, log)
	if err != nil {
		log.Warn("narrator unavailable", zap.Error(err))
		return
	}
	defer n.Close()
	story, err := n.Narrate(ctx, result)
	if err != nil {
		log.Warn("narration failed", zap.Error(err))
		return
	}
	result.Narrative = story
}

// reportFormat resolves the effective report format from flag then config.
func (a *app) reportFormat(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Report.Format
}

// writeReports renders the results in one or both formats. With "both" and a
// file output, each format gets its own extension next to the requested path.
func writeReports(format, output string, results ...*schemas.JourneyResult) error {
	formats := []string{format}
	if format == "both" {
		formats = []string{"json", "markdown"}
	}
	for _, f := range formats {
		path := output
		if format == "both" && path != "" && path != "stdout" {
			path = fmt.Sprintf("%s.%s", output, extensionFor(f))
		}
		rep, err := reporting.New(f, path)
		if err != nil {
			return err
		}
		for _, res := range results {
			if err := rep.Write(res); err != nil {
				rep.Close()
				return err
			}
		}
		if err := rep.Close(); err != nil {
			return err
		}
	}
	return nil
}

func extensionFor(format string) string {
	if format == "markdown" || format == "md" {
		return "md"
	}
	return format
}

// saveScript writes a recorded fixture script to disk.
func saveScript(script fixture.Script, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating script file %s: %w", path, err)
	}
	defer f.Close()
	return script.Save(f)
}
