package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// ValidateTransitionTool handles the pdca_validate_transition MCP tool.
type ValidateTransitionTool struct {
	store *pdca.Store
}

// NewValidateTransitionTool creates a ValidateTransitionTool over store.
func NewValidateTransitionTool(store *pdca.Store) *ValidateTransitionTool {
	return &ValidateTransitionTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTransitionTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_validate_transition",
		mcp.WithDescription(
			"Check whether a feature may move between two phases without changing anything. "+
				"Going back is always allowed, skipping ahead never is, and moving forward needs "+
				"the current phase's document (do and act have none).",
		),
		mcp.WithString("feature",
			mcp.Description("Feature to check. Defaults to the primary feature."),
		),
		mcp.WithString("from",
			mcp.Description("Starting phase. Defaults to the feature's current phase."),
			mcp.Enum(phaseNames()...),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target phase"),
			mcp.Enum(phaseNames()...),
		),
	)
}

// Handle processes the pdca_validate_transition tool call.
func (t *ValidateTransitionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feature := featureOrPrimary(req, t.store)
	to, err := phaseArg(req, "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var from pdca.Phase
	if req.GetString("from", "") != "" {
		if from, err = phaseArg(req, "from"); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else if fs := t.store.Feature(feature); fs != nil {
		from = fs.Phase
	} else {
		return mcp.NewToolResultError("'from' is required when the feature is not tracked"), nil
	}

	v := pdca.ValidateTransition(t.store.Root(), feature, from, to)
	block, err := jsonBlock(map[string]any{
		"feature": feature,
		"from":    from,
		"to":      to,
		"valid":   v.Valid,
		"reason":  v.Reason,
	})
	if err != nil {
		return nil, err
	}
	mark := "✅"
	if !v.Valid {
		mark = "❌"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s → %s: %s\n\n%s", mark, from, to, v.Reason, block)), nil
}
