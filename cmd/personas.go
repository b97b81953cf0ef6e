// File: cmd/personas.go
package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/meander-cli/api/schemas"
	"github.com/xkilldash9x/meander-cli/internal/traits"
)

// newPersonasCmd groups the persona inspection subcommands.
func newPersonasCmd(a *app) *cobra.Command {
	personasCmd := &cobra.Command{
		Use:   "personas",
		Short: "Inspect persona templates and trait derivation",
	}
	personasCmd.AddCommand(
		newPersonasListCmd(a),
		newPersonasShowCmd(a),
		newPersonasDeriveCmd(a),
	)
	return personasCmd
}

func newPersonasListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available persona templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEXPLICIT TRAITS\tDESCRIPTION")
			for _, tpl := range a.builder.Templates() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", tpl.Name, len(tpl.Traits), tpl.Description)
			}
			return w.Flush()
		},
	}
}

func newPersonasShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a template's resolved trait vector with behavioral levels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			tpl, err := a.builder.Template(name)
			if err != nil {
				return err
			}
			profile, err := a.builder.FromTemplate(name, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", tpl.Name)
			if tpl.Description != "" {
				fmt.Fprintf(out, "%s\n", tpl.Description)
			}
			fmt.Fprintln(out)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRAIT\tVALUE\tLEVEL\tSOURCE")
			for _, def := range a.catalog.All() {
				value := profile.Traits[def.ID]
				label, err := a.catalog.LevelLabel(def.ID, value)
				if err != nil {
					return err
				}
				source := "derived"
				if _, ok := tpl.Traits[def.ID]; ok {
					source = "template"
				}
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", def.ID, value, label, source)
			}
			return w.Flush()
		},
	}
}

func newPersonasDeriveCmd(a *app) *cobra.Command {
	var (
		traitFlags []string
		base       string
	)

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a full trait vector from partial answers and explain it",
		Long: `Derive resolves a sparse trait assignment into a complete vector the way a
journey run would, and prints which correlations moved each derived value.`,
		Example: `  meander personas derive --trait patience=0.1 --trait techLiteracy=0.8
  meander personas derive --base skimmer --trait anxiety=0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseTraitOverrides(traitFlags)
			if err != nil {
				return err
			}
			if base == "" && len(overrides) == 0 {
				return fmt.Errorf("derive needs at least one --trait flag or a --base template")
			}

			var derivations []derivationRow
			if base != "" {
				rows, err := a.builder.Explain(base, overrides)
				if err != nil {
					return err
				}
				derivations = toRows(rows)
			} else {
				// No base template: explain the raw answers directly.
				if _, err := a.builder.FromAnswers(overrides); err != nil {
					return err
				}
				resolver := a.newResolver()
				rows, err := resolver.Explain(overrides)
				if err != nil {
					return err
				}
				derivations = toRows(rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRAIT\tVALUE\tSOURCE\tCONTRIBUTIONS")
			for _, row := range derivations {
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", row.trait, row.value, row.source, row.contributions)
			}
			return w.Flush()
		},
	}

	deriveCmd.Flags().StringArrayVar(&traitFlags, "trait", nil, "supplied answer as traitId=value, repeatable")
	deriveCmd.Flags().StringVar(&base, "base", "", "start from a template instead of catalog defaults")
	return deriveCmd
}

type derivationRow struct {
	trait         schemas.TraitID
	value         float64
	source        string
	contributions string
}

// toRows flattens derivations into printable rows.
func toRows(derivations []traits.Derivation) []derivationRow {
	rows := make([]derivationRow, 0, len(derivations))
	for _, d := range derivations {
		row := derivationRow{trait: d.Trait, value: d.Value}
		switch {
		case d.Supplied:
			row.source = "supplied"
		case len(d.Contributions) > 0:
			row.source = "derived"
		default:
			row.source = "default"
		}
		var parts []string
		for _, c := range d.Contributions {
			parts = append(parts, fmt.Sprintf("%s(%.2f)*%+.2f -> %+.3f", c.Source, c.SourceValue, c.Weight, c.Delta))
		}
		row.contributions = strings.Join(parts, ", ")
		rows = append(rows, row)
	}
	return rows
}

// newResolver builds a resolver over the app's catalog for raw-answer
// explanation.
func (a *app) newResolver() *traits.Resolver {
	return traits.NewResolver(a.catalog)
}
