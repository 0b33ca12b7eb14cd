package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// StatusTool handles the pdca_status MCP tool.
// It shows the whole status document or one feature's state.
type StatusTool struct {
	store *pdca.Store
}

// NewStatusTool creates a StatusTool over store.
func NewStatusTool(store *pdca.Store) *StatusTool {
	return &StatusTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_status",
		mcp.WithDescription(
			"Show PDCA progress. Without `feature`, lists every tracked feature with its phase "+
				"and match rate. With `feature`, returns that feature's full state as JSON.",
		),
		mcp.WithString("feature",
			mcp.Description("Feature to inspect. If omitted, shows the overview."),
		),
	)
}

// Handle processes the pdca_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := t.store.Get(true)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read status: %v", err)), nil
	}
	if st == nil {
		return mcp.NewToolResultText("No PDCA status yet. Start a feature with `pdca_update`."), nil
	}

	if feature := req.GetString("feature", ""); feature != "" {
		fs := st.Features[feature]
		if fs == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q is not tracked", feature)), nil
		}
		block, err := jsonBlock(fs)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", feature, block)), nil
	}

	return mcp.NewToolResultText(Overview(st)), nil
}

// Overview renders the status document as a markdown table.
func Overview(st *pdca.Status) string {
	var b strings.Builder
	b.WriteString("# PDCA Status\n\n")
	if primary := string(st.PrimaryFeature); primary != "" {
		fmt.Fprintf(&b, "**Primary:** %s\n", primary)
	}
	if len(st.ActiveFeatures) > 0 {
		fmt.Fprintf(&b, "**Active:** %s\n", strings.Join(st.ActiveFeatures, ", "))
	}
	b.WriteString("\n")

	names := st.FeatureNames()
	if len(names) == 0 {
		b.WriteString("No features tracked.\n")
		return b.String()
	}

	b.WriteString("| Feature | Phase | Match Rate | Iterations |\n")
	b.WriteString("|---------|-------|------------|------------|\n")
	for _, name := range names {
		fs := st.Features[name]
		rate := "-"
		if fs.MatchRate != nil {
			rate = fmt.Sprintf("%d%%", *fs.MatchRate)
		}
		fmt.Fprintf(&b, "| %s | %s %s | %s | %d |\n", name, pdca.PhaseIcon(fs.Phase), fs.Phase, rate, fs.IterationCount)
	}
	return b.String()
}
