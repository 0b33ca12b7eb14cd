package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/syncdirs"
)

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	var opts syncdirs.Options

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync plugin folders from .claude/ to the plugin root",
		Long: `Copy new and changed files of the skills, agents, commands and templates
folders from the plugin's .claude/ directory to the plugin
root. Targets newer than their source are skipped unless --force is set.

--reverse copies the plugin root back into .claude/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := resolveEnv()
			res, err := syncdirs.Sync(env.PluginRoot, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.NoSource {
				fmt.Fprintf(out, "%s No .claude/ directory under %s. Nothing to sync.\n", warnMark, env.PluginRoot)
				return nil
			}
			for _, f := range res.MissingFolders {
				fmt.Fprintf(out, "%s %s/ missing in source\n", warnMark, f)
			}

			prefix := ""
			if opts.DryRun {
				prefix = "[DRY-RUN] "
			}
			changed := 0
			for _, a := range res.Actions {
				path := a.Folder + "/" + a.Path
				switch a.Kind {
				case syncdirs.ActionNew, syncdirs.ActionUpdate:
					changed++
					fmt.Fprintf(out, "%s%s: %s\n", prefix, color.New(color.FgGreen).Sprint(a.Kind), path)
				case syncdirs.ActionError:
					fmt.Fprintf(out, "%s%s: %s (%v)\n", prefix, color.New(color.FgRed).Sprint(a.Kind), path, a.Err)
				}
			}
			if changed == 0 && res.Stats.Errors == 0 {
				fmt.Fprintln(out, "Nothing to sync.")
			}
			fmt.Fprintf(out, "\nNew: %d  Updated: %d  Skipped: %d  Errors: %d\n",
				res.Stats.New, res.Stats.Updated, res.Stats.Skipped, res.Stats.Errors)
			if res.Stats.Errors > 0 {
				return fmt.Errorf("%d files failed to sync", res.Stats.Errors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite targets even when they are newer")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "Copy from the plugin root into .claude/")

	return cmd
}
