// File: cmd/mcp.go
package cmd

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/meander-cli/internal/mcp"
	"github.com/xkilldash9x/meander-cli/internal/observability"
)

// newMCPCmd creates the `mcp` command: serve the engine to agent hosts over
// stdio. Stdout belongs to the MCP transport, so all logging goes to the
// configured log file or stays silent.
func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the journey engine over the Model Context Protocol (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := mcp.NewServer(a.catalog, a.builder, a.cfg.Simulation.Tuning, Version, observability.GetLogger())
			return srv.Run(cmd.Context(), &sdkmcp.StdioTransport{})
		},
	}
}
