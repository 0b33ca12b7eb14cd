package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// UpdateTool handles the pdca_update MCP tool.
// It moves a feature to a phase, creating it on first use.
type UpdateTool struct {
	store *pdca.Store
}

// NewUpdateTool creates an UpdateTool over store.
func NewUpdateTool(store *pdca.Store) *UpdateTool {
	return &UpdateTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_update",
		mcp.WithDescription(
			"Set a feature's PDCA phase. New features are created, activated, and made primary "+
				"when no primary exists. Pass `strict` to refuse transitions that skip a phase "+
				"or lack the current phase's document.",
		),
		mcp.WithString("feature",
			mcp.Required(),
			mcp.Description("Feature name, e.g. user-auth"),
		),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Description("Target phase"),
			mcp.Enum(phaseNames()...),
		),
		mcp.WithNumber("match_rate",
			mcp.Description("Design match rate (0-100) from the latest gap analysis"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Validate the transition before applying it (default: false)"),
		),
	)
}

// Handle processes the pdca_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feature := req.GetString("feature", "")
	if feature == "" {
		return mcp.NewToolResultError("'feature' is required"), nil
	}
	phase, err := phaseArg(req, "phase")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if boolArg(req, "strict", false) {
		if cur := t.store.Feature(feature); cur != nil {
			v := pdca.ValidateTransition(t.store.Root(), feature, cur.Phase, phase)
			if !v.Valid {
				return mcp.NewToolResultError(fmt.Sprintf("Transition %s → %s rejected: %s", cur.Phase, phase, v.Reason)), nil
			}
		}
	}

	patch := pdca.Patch{}
	if rate := intArg(req, "match_rate", -1); rate >= 0 {
		if rate > 100 {
			return mcp.NewToolResultError("'match_rate' must be between 0 and 100"), nil
		}
		patch["matchRate"] = rate
	}
	if phase == pdca.PhaseCompleted {
		patch["timestamps"] = map[string]any{"completed": pdca.Now()}
	}

	if err := t.store.Update(feature, phase, patch); err != nil {
		return nil, fmt.Errorf("updating %s: %w", feature, err)
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"%s **%s** is now in %s (phase %d).",
		pdca.PhaseIcon(phase), feature, pdca.PhaseTitle(phase), pdca.PhaseNumber(phase),
	)), nil
}
