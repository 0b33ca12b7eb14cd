package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	bkitserver "github.com/bkit-dev/bkit/internal/server"
	"github.com/bkit-dev/bkit/internal/updater"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start the bkit MCP server on stdin/stdout. It exposes the PDCA status
tools, the hook journal, the memory store, the pdca-start and pdca-status
prompts and the status resources of the current project.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := bkitserver.New(resolveEnv())
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			// Notices go to stderr; stdout carries the MCP transport.
			go checkForUpdates(cmd.Context())

			if err := server.ServeStdio(s); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

// checkForUpdates prints a notice when a newer release exists. Network
// failures are ignored.
func checkForUpdates(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := updater.NewChecker().Check(ctx, bkitserver.Version)
	if err != nil || !res.UpdateAvailable {
		return
	}
	fmt.Fprintf(os.Stderr,
		"\n  📦 Update available: v%s → v%s\n"+
			"     Update the bkit plugin to upgrade.\n"+
			"     Release: %s\n\n",
		res.CurrentVersion, res.LatestVersion, res.ReleaseURL,
	)
}
