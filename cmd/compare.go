// File: cmd/compare.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/journey"
	"github.com/xkilldash9x/meander-cli/internal/observability"
	"github.com/xkilldash9x/meander-cli/internal/persona"
)

// newCompareCmd creates the `compare` command: the same goal attempted by
// several personas, run concurrently, reported side by side.
func newCompareCmd(a *app) *cobra.Command {
	var (
		personaNames []string
		traitFlags   []string
		goal         string
		startURL     string
		fixturePath  string
		goalURL      string
		maxSteps     int
		maxTime      time.Duration
		seed         int64
		output       string
		format       string
		concurrency  int
	)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Run the same goal with several personas and compare outcomes",
		Example: `  meander compare -p skimmer -p power-user -p anxious-newcomer \
      --goal "find pricing" --fixture testdata/pricing.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(personaNames) < 2 {
				return fmt.Errorf("compare needs at least two --persona flags, got %d", len(personaNames))
			}
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
			}
			ctx := cmd.Context()
			log := observability.GetLogger()

			overrides, err := parseTraitOverrides(traitFlags)
			if err != nil {
				return err
			}

			// Resolve every profile up front so a bad persona name fails the
			// whole run before any journey starts.
			profiles := make([]persona.Profile, 0, len(personaNames))
			for _, name := range personaNames {
				profile, err := a.buildProfile(name, overrides)
				if err != nil {
					return err
				}
				profiles = append(profiles, profile)
			}

			// Every persona gets the same seed, so outcome differences come
			// from traits, never from divergent dice.
			runSeed := resolveSeed(seed, a.cfg.Simulation.Seed)
			orch := journey.New(log, a.cfg.Simulation.Tuning, nil)
			results := make([]*schemas.JourneyResult, len(profiles))

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)
			for i, profile := range profiles {
				g.Go(func() error {
					exp, resolvedURL, cleanup, err := a.openExplorer(gctx, log, explorerSpec{
						fixturePath: fixturePath,
						startURL:    startURL,
						goalURL:     goalURL,
					})
					if err != nil {
						return fmt.Errorf("persona %s: %w", profile.Name, err)
					}
					defer cleanup()

					jcfg := a.journeyConfig(profile.Name, goal, resolvedURL, maxSteps, maxTime, runSeed)
					res, err := orch.Run(gctx, profile, jcfg, exp)
					if err != nil {
						return fmt.Errorf("persona %s: %w", profile.Name, err)
					}
					results[i] = res
					log.Info("journey complete",
						zap.String("persona", profile.Name),
						zap.String("reason", string(res.Reason)),
						zap.Int("steps", len(res.Steps)))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, res := range results {
				a.narrate(ctx, log, res)
			}
			return writeReports(a.reportFormat(format), output, results...)
		},
	}

	compareCmd.Flags().StringArrayVarP(&personaNames, "persona", "p", nil, "persona template name, repeatable (at least two)")
	compareCmd.Flags().StringArrayVar(&traitFlags, "trait", nil, "trait override applied to every persona, as traitId=value")
	compareCmd.Flags().StringVarP(&goal, "goal", "g", "", "what every simulated user is trying to accomplish (required)")
	compareCmd.Flags().StringVarP(&startURL, "url", "u", "", "start URL for live browser journeys")
	compareCmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "recorded journey script to replay instead of a live browser")
	compareCmd.Flags().StringVar(&goalURL, "goal-url", "", "URL fragment that positively confirms the goal page (live runs)")
	compareCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget per journey (default from config)")
	compareCmd.Flags().DurationVar(&maxTime, "max-time", 0, "simulated-time budget per journey (default from config)")
	compareCmd.Flags().Int64Var(&seed, "seed", 0, "random seed shared by every journey (0 picks one)")
	compareCmd.Flags().StringVarP(&output, "output", "o", "", "report path (default stdout)")
	compareCmd.Flags().StringVar(&format, "format", "", "report format: json, markdown, or both (default from config)")
	compareCmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum journeys in flight at once")
	compareCmd.MarkFlagRequired("goal")

	return compareCmd
}
