package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/archive"
)

// ArchiveCmd returns the archive command
func ArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive [feature]",
		Short: "Move a feature's PDCA documents into docs/archive",
		Long: `Move the plan, design, analysis and report documents of a feature into
docs/archive/YYYY-MM/<feature>/, add a row to that month's _INDEX.md, and
mark the feature archived in the status document.

The feature defaults to the primary feature.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store := project()
			feature, err := featureArg(store, args)
			if err != nil {
				return err
			}

			res, err := archive.New(store.Root(), store).Archive(feature)
			if errors.Is(err, archive.ErrNoDocuments) {
				out := cmd.ErrOrStderr()
				fmt.Fprintf(out, "%s No PDCA documents found for %s. Checked:\n", failMark, feature)
				for _, p := range archive.CheckedPaths(store.Root(), feature) {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				return err
			}
			if err != nil {
				return fmt.Errorf("archiving %s: %w", feature, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Archived %s → %s\n", okMark, feature, rel(store.Root(), res.Dir))
			for _, d := range res.Moved {
				fmt.Fprintf(out, "  - %s (%s)\n", filepath.Base(d.Path), d.Type)
			}
			fmt.Fprintf(out, "Index: %s\n", rel(store.Root(), res.IndexPath))
			return nil
		},
	}
}

func rel(root, p string) string {
	if r, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return p
}
