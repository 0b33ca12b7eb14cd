package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/templates"
)

// TemplateCmd returns the template command
func TemplateCmd() *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "template <type> [feature]",
		Short: "Pick the document template for a PDCA phase",
		Long: `Select the template for a PDCA document and print the values to fill it
with as JSON: template path, level, feature, date, project and version.

Types: ` + strings.Join(templates.Types, ", ") + `

The level-specific template (e.g. design-starter.template.md) wins over the
plain one. The level defaults to BKIT_LEVEL or the detected project level.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			if !slices.Contains(templates.Types, kind) {
				return fmt.Errorf("unknown template type %q (want one of %s)", kind, strings.Join(templates.Types, ", "))
			}
			feature := "feature"
			if len(args) > 1 {
				feature = args[1]
			}

			env, cfg, store := project()
			lvl := pdca.Level(level)
			if level == "" {
				lvl = pdca.DetectLevel(store.Root(), cfg)
				if l := os.Getenv("BKIT_LEVEL"); pdca.ValidLevel(l) {
					lvl = pdca.Level(l)
				}
			}

			path, err := templates.Select(templates.Dir(env), kind, lvl)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(templates.Variables(store.Root(), path, feature, lvl), "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling variables: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Project level: Starter, Dynamic or Enterprise")

	return cmd
}
