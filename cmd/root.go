// File: cmd/root.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/meander-cli/internal/config"
	"github.com/xkilldash9x/meander-cli/internal/observability"
	"github.com/xkilldash9x/meander-cli/internal/persona"
	"github.com/xkilldash9x/meander-cli/internal/traits"
)

// app carries the state every subcommand needs: the loaded configuration,
// the trait catalog, and the persona builder preloaded with built-in and
// user-supplied templates. It is populated by the root PersistentPreRunE so
// subcommand RunE bodies can assume it is ready.
type app struct {
	cfgFile string

	cfg     *config.Config
	catalog *traits.Catalog
	builder *persona.Builder
}

// NewRootCommand builds a fresh command tree. Each call returns an isolated
// instance so tests can execute commands without sharing state.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "meander",
		Short: "meander simulates persona-driven users navigating toward a goal",
		Long: `Meander runs psychologically plausible simulated users ("personas")
against live pages or recorded fixtures and reports where they succeed,
struggle, or give up.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default searches ./meander.yaml and ~/meander.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(a),
		newCompareCmd(a),
		newPersonasCmd(a),
		newReportCmd(a),
		newMCPCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// initialize loads configuration, brings up logging, and prepares the
// persona builder. A configuration problem surfaces here, before any
// journey state exists.
func (a *app) initialize() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		// Bring up a fallback logger so the failure is still visible in logs.
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "meander"})
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger)

	a.catalog = traits.NewCatalog()
	a.builder = persona.NewBuilder(a.catalog)

	if dir := cfg.Personas.Dir; dir != "" {
		templates, err := persona.LoadTemplateDir(dir)
		if err != nil {
			return fmt.Errorf("loading persona templates from %s: %w", dir, err)
		}
		for _, tpl := range templates {
			if err := a.builder.Register(tpl); err != nil {
				return fmt.Errorf("registering persona template: %w", err)
			}
		}
		if len(templates) > 0 {
			observability.GetLogger().Debug("loaded persona templates",
				zap.String("dir", dir), zap.Int("count", len(templates)))
		}
	}
	return nil
}
