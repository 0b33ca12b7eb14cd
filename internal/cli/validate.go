package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/hooks"
	"github.com/bkit-dev/bkit/internal/validate"
)

// ValidateCmd returns the validate command
func ValidateCmd() *cobra.Command {
	var verbose, asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [plugin-dir]",
		Short: "Check the plugin's structure, frontmatter and hook references",
		Long: `Validate a bkit plugin directory: required files and folders,
plugin.json, SKILL.md and agent frontmatter, command files, and every
script or handler that hooks.json references.

The directory defaults to the plugin root.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := resolveEnv().PluginRoot
			if len(args) > 0 {
				root = args[0]
			}

			rep, err := validate.Run(cmd.Context(), root, validate.Options{
				KnownHandler: func(name string) bool {
					_, ok := hooks.Lookup(name)
					return ok
				},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling report: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				if rep.Plugin != "" {
					fmt.Fprintf(out, "Plugin: %s\n\n", rep.Plugin)
				}
				if verbose {
					for _, n := range rep.Notes {
						fmt.Fprintf(out, "  %s %s\n", okMark, n)
					}
					fmt.Fprintln(out)
				}
				st := rep.Stats
				for _, row := range []struct {
					name string
					c    validate.Counts
				}{
					{"Skills", st.Skills}, {"Agents", st.Agents}, {"Commands", st.Commands}, {"Hooks", st.Hooks},
				} {
					fmt.Fprintf(out, "%-9s %d/%d valid\n", row.name+":", row.c.Valid, row.c.Total)
				}
				for _, w := range st.Warnings {
					fmt.Fprintf(out, "%s %s\n", warnMark, w)
				}
				for _, e := range st.Errors {
					fmt.Fprintf(out, "%s %s\n", failMark, e)
				}
				if rep.Valid {
					fmt.Fprintf(out, "\n%s Plugin is valid\n", okMark)
				}
			}

			if !rep.Valid {
				return fmt.Errorf("validation failed with %d errors", len(rep.Stats.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show every passing check")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
