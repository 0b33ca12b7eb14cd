package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// StatusCmd returns the status command
func StatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [feature]",
		Short: "Show PDCA progress",
		Long: `Show where every feature stands in the PDCA cycle: phase, match rate and
iteration count, with the primary feature marked.

With a feature name, show that feature's task chain instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, store := project()
			st, err := store.Get(true)
			if err != nil {
				return fmt.Errorf("reading status: %w", err)
			}
			out := cmd.OutOrStdout()

			if st == nil {
				fmt.Fprintln(out, "No PDCA status yet. Start a feature with /pdca plan <feature>.")
				return nil
			}

			if len(args) == 0 {
				if asJSON {
					return writeJSON(out, st)
				}
				renderOverview(out, st)
				return nil
			}

			feature := args[0]
			fs := st.Features[feature]
			if fs == nil {
				return fmt.Errorf("feature %q is not tracked", feature)
			}
			if asJSON {
				return writeJSON(out, fs)
			}
			tracker := task.NewTracker(store, automation.FromConfig(cfg.Typed()), debuglog.Nop())
			renderFeature(out, feature, fs, tracker.ChainStatus(feature))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")

	return cmd
}

func renderOverview(w io.Writer, st *pdca.Status) {
	fmt.Fprintln(w, headerStyle.Render("PDCA Status"))
	names := st.FeatureNames()
	if len(names) == 0 {
		fmt.Fprintln(w, "No features tracked.")
		return
	}

	widths := []int{len("Feature"), len("Phase"), len("Match"), len("Iter")}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		fs := st.Features[name]
		rate := "-"
		if fs.MatchRate != nil {
			rate = fmt.Sprintf("%d%%", *fs.MatchRate)
		}
		row := []string{name, fmt.Sprintf("%s %s", pdca.PhaseIcon(fs.Phase), fs.Phase), rate, fmt.Sprint(fs.IterationCount)}
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
		rows = append(rows, row)
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i] + 2).Render(c)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " ")
	}

	fmt.Fprintln(w, line([]string{"Feature", "Phase", "Match", "Iter"}, labelStyle.Inherit(cellStyle)))
	primary := string(st.PrimaryFeature)
	for i, row := range rows {
		text := line(row, cellStyle)
		switch {
		case names[i] == primary:
			text += color.New(color.FgHiMagenta).Sprint(" ← primary")
		case !st.IsActive(names[i]):
			text = color.New(color.Faint).Sprint(text)
		}
		fmt.Fprintln(w, text)
	}
}

func renderFeature(w io.Writer, feature string, fs *pdca.FeatureState, cs task.ChainStatus) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s %s", pdca.PhaseIcon(fs.Phase), feature)))
	fmt.Fprintf(w, "%s %s (phase %d)\n", labelStyle.Render("Phase:"), pdca.PhaseTitle(fs.Phase), fs.PhaseNumber)
	if fs.MatchRate != nil {
		fmt.Fprintf(w, "%s %d%%\n", labelStyle.Render("Match rate:"), *fs.MatchRate)
	}
	if fs.IterationCount > 0 {
		fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Iterations:"), fs.IterationCount)
	}
	fmt.Fprintln(w)

	for _, phase := range pdca.PhaseOrder {
		pt := cs.Tasks[phase]
		var marker string
		switch pt.Status {
		case "completed":
			marker = okMark
		case "in_progress":
			marker = color.New(color.FgCyan).Sprint("▶")
		default:
			marker = color.New(color.Faint).Sprint("·")
		}
		line := fmt.Sprintf("%s %-7s %s", marker, phase, pt.Status)
		if pt.TaskID != "" {
			line += labelStyle.Render("  " + pt.TaskID)
		}
		fmt.Fprintln(w, line)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
