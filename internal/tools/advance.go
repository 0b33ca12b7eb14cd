package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/task"
)

// AdvanceTool handles the pdca_advance MCP tool.
// It moves a feature to the phase that follows its current one.
type AdvanceTool struct {
	store  *pdca.Store
	policy automation.Policy
}

// NewAdvanceTool creates an AdvanceTool. policy supplies the match-rate
// threshold that decides between report and act after check.
func NewAdvanceTool(store *pdca.Store, policy automation.Policy) *AdvanceTool {
	return &AdvanceTool{store: store, policy: policy}
}

// Definition returns the MCP tool definition for registration.
func (t *AdvanceTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_advance",
		mcp.WithDescription(
			"Advance a feature to its next PDCA phase. After check, a match rate at or above "+
				"the threshold goes to report, otherwise to act. Finishing report completes the "+
				"feature. The current phase's document must exist unless `force` is set.",
		),
		mcp.WithString("feature",
			mcp.Description("Feature to advance. Defaults to the primary feature."),
		),
		mcp.WithNumber("match_rate",
			mcp.Description("Match rate to record and branch on. Defaults to the stored rate."),
		),
		mcp.WithBoolean("force",
			mcp.Description("Skip the deliverable check (default: false)"),
		),
	)
}

// Handle processes the pdca_advance tool call.
func (t *AdvanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feature := featureOrPrimary(req, t.store)
	if feature == "" {
		return mcp.NewToolResultError("No feature given and no primary feature set."), nil
	}
	fs := t.store.Feature(feature)
	if fs == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Feature %q is not tracked. Start it with `pdca_update`.", feature)), nil
	}
	from := fs.Phase

	rate := intArg(req, "match_rate", -1)
	if rate < 0 && fs.MatchRate != nil {
		rate = *fs.MatchRate
	}

	if !boolArg(req, "force", false) {
		if d := pdca.CheckDeliverables(t.store.Root(), from, feature); !d.Exists {
			return mcp.NewToolResultError(fmt.Sprintf(
				"%s deliverable for %s not found. Write it first or pass force.", pdca.PhaseTitle(from), feature,
			)), nil
		}
	}

	if from == pdca.PhaseReport {
		if err := t.store.Complete(feature); err != nil {
			return nil, fmt.Errorf("completing %s: %w", feature, err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("✅ **%s** completed. Archive it with `bkit archive %s`.", feature, feature)), nil
	}

	to := t.policy.NextAfter(from, max(rate, 0))
	if to == "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s has no next phase after %s.", feature, from)), nil
	}

	patch := pdca.Patch{"previousPhase": string(from)}
	if rate >= 0 {
		patch["matchRate"] = rate
	}
	if err := t.store.Update(feature, to, patch); err != nil {
		return nil, fmt.Errorf("advancing %s: %w", feature, err)
	}

	trigger := &automation.Trigger{Skill: "pdca", Args: task.Verb(to) + " " + feature}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s **%s**: %s → %s\n\nNext: `%s`",
		pdca.PhaseIcon(to), feature, from, to, trigger.String(),
	)), nil
}
