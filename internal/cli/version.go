package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/server"
	"github.com/bkit-dev/bkit/internal/updater"
)

// newChecker is a package-level variable for testability.
var newChecker = func() *updater.Checker { return updater.NewChecker() }

// VersionCmd returns the version command
func VersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the bkit version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bkit v%s\n", updater.Normalize(server.Version))
			if !check {
				return nil
			}

			res, err := newChecker().Check(cmd.Context(), server.Version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if res.UpdateAvailable {
				fmt.Fprintf(out, "%s New version available: v%s → v%s\n  %s\n", warnMark, res.CurrentVersion, res.LatestVersion, res.ReleaseURL)
				return nil
			}
			fmt.Fprintf(out, "%s Already at the latest version\n", okMark)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
