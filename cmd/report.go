// File: cmd/report.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/meander-cli/internal/observability"
)

// newReportCmd creates the `report` command: re-render archived journeys.
func newReportCmd(a *app) *cobra.Command {
	var (
		journeyID string
		output    string
		format    string
		limit     int
	)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render an archived journey, or list recent ones",
		Example: `  meander report --journey-id 2f4c...
  meander report --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := observability.GetLogger()

			st, closeStore, err := a.openStore(ctx, log)
			if err != nil {
				return err
			}
			defer closeStore()

			if journeyID == "" {
				summaries, err := st.ListResults(ctx, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "JOURNEY\tPERSONA\tGOAL\tREASON\tSTEPS\tSTARTED")
				for _, s := range summaries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
						s.JourneyID, s.Persona, s.Goal, s.Reason, s.Steps,
						s.StartedAt.Format("2006-01-02 15:04:05"))
				}
				return w.Flush()
			}

			result, err := st.GetResult(ctx, journeyID)
			if err != nil {
				return err
			}
			return writeReports(a.reportFormat(format), output, result)
		},
	}

	reportCmd.Flags().StringVar(&journeyID, "journey-id", "", "archived journey to render (omit to list recent journeys)")
	reportCmd.Flags().StringVarP(&output, "output", "o", "", "report path (default stdout)")
	reportCmd.Flags().StringVar(&format, "format", "", "report format: json, markdown, or both (default from config)")
	reportCmd.Flags().IntVar(&limit, "limit", 10, "how many journeys to list")
	return reportCmd
}
