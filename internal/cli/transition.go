package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/pipeline"
)

// TransitionCmd returns the transition command
func TransitionCmd() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "transition [phase]",
		Short: "Complete the current development pipeline phase",
		Long: `Check the deliverables of a development pipeline phase and, when they are
all present, record it complete and move to the next phase that applies to
the project level.

The phase defaults to the one in the status document. The command fails
while deliverables are missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current := 0
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("phase must be a number 1-9, got %q", args[0])
				}
				current = n
			}

			_, _, store := project()
			res, err := pipeline.Transition(store, current, auto)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.Outcome == pipeline.OutcomeIncomplete {
				return fmt.Errorf("phase %d has %d missing deliverables", res.From, len(res.Missing))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "Mark the move as automatic")

	return cmd
}
