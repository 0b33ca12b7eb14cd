// bkit: PDCA workflow tooling for Claude Code and Gemini CLI.
//
// The same binary serves the plugin's hooks, the MCP server and the
// maintenance commands.
//
// Usage:
//
//	bkit hook PreToolUse   # Handle a host hook event (stdin JSON)
//	bkit serve             # Start the MCP server (stdio transport)
//	bkit status            # Show PDCA progress
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/cli"
	"github.com/bkit-dev/bkit/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "bkit",
		Short:   "bkit - PDCA workflow tooling for AI coding hosts",
		Version: server.Version,
		Long: `bkit drives the Plan-Design-Do-Check-Act cycle inside Claude Code and
Gemini CLI: hook handlers, an MCP server with the PDCA tools, and commands
to inspect and maintain the project's PDCA documents.`,
		SilenceUsage: true,
	}

	// Host integration
	rootCmd.AddCommand(cli.HookCmd())
	rootCmd.AddCommand(cli.ServeCmd())

	// PDCA documents
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.TransitionCmd())
	rootCmd.AddCommand(cli.ArchiveCmd())
	rootCmd.AddCommand(cli.TemplateCmd())

	// Plugin maintenance
	rootCmd.AddCommand(cli.SyncCmd())
	rootCmd.AddCommand(cli.ValidateCmd())
	rootCmd.AddCommand(cli.VersionCmd())

	rootCmd.AddCommand(cli.MarketCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
