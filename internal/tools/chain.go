package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/task"
)

// ChainTool handles the pdca_chain MCP tool.
// It creates or inspects a feature's plan→report task chain.
type ChainTool struct {
	store   *pdca.Store
	tracker *task.Tracker
	cfg     *config.Config
}

// NewChainTool creates a ChainTool. cfg feeds level detection for new
// chains and may be nil.
func NewChainTool(store *pdca.Store, tracker *task.Tracker, cfg *config.Config) *ChainTool {
	return &ChainTool{store: store, tracker: tracker, cfg: cfg}
}

// Definition returns the MCP tool definition for registration.
func (t *ChainTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_chain",
		mcp.WithDescription(
			"Manage a feature's PDCA task chain. `status` shows each phase task as completed, "+
				"in_progress or pending. `create` builds the plan → design → do → check → report "+
				"chain with blockedBy links, unless one already exists.",
		),
		mcp.WithString("feature",
			mcp.Description("Feature name. Defaults to the primary feature."),
		),
		mcp.WithString("action",
			mcp.Description("status (default) or create"),
			mcp.Enum("status", "create"),
		),
	)
}

// Handle processes the pdca_chain tool call.
func (t *ChainTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feature := featureOrPrimary(req, t.store)
	if feature == "" {
		return mcp.NewToolResultError("No feature given and no primary feature set."), nil
	}

	switch action := req.GetString("action", "status"); action {
	case "create":
		if err := t.store.InitIfNotExists(); err != nil {
			return nil, fmt.Errorf("creating chain: %w", err)
		}
		level := pdca.DetectLevel(t.store.Root(), t.cfg)
		chain, err := t.tracker.CreateChain(feature, task.Options{Level: level, SkipIfExists: true})
		if err != nil {
			return nil, fmt.Errorf("creating chain: %w", err)
		}
		if chain.Skipped {
			return mcp.NewToolResultText(fmt.Sprintf("Task chain for **%s** already exists.", feature)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📋 Created %d tasks for **%s** (%s level)\n\n", len(chain.Phases), feature, level)
		for _, phase := range chain.Phases {
			tk := chain.Tasks[phase]
			fmt.Fprintf(&b, "- `%s` %s", tk.ID, tk.Subject)
			if len(tk.BlockedBy) > 0 {
				fmt.Fprintf(&b, " (blocked by `%s`)", strings.Join(tk.BlockedBy, "`, `"))
			}
			b.WriteString("\n")
		}
		return mcp.NewToolResultText(b.String()), nil

	case "status":
		cs := t.tracker.ChainStatus(feature)
		if !cs.Exists {
			return mcp.NewToolResultError(fmt.Sprintf("Feature %q is not tracked", feature)), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "# Task Chain: %s\n\n", feature)
		b.WriteString("| Phase | Status | Task |\n")
		b.WriteString("|-------|--------|------|\n")
		for _, phase := range pdca.PhaseOrder {
			pt := cs.Tasks[phase]
			marker := "⬜"
			switch pt.Status {
			case "completed":
				marker = "✅"
			case "in_progress":
				marker = "🔄"
			}
			id := pt.TaskID
			if id == "" {
				id = "-"
			}
			fmt.Fprintf(&b, "| %s %s | %s | %s |\n", marker, phase, pt.Status, id)
		}
		if cs.MatchRate != nil {
			fmt.Fprintf(&b, "\n**Match rate:** %d%%\n", *cs.MatchRate)
		}
		return mcp.NewToolResultText(b.String()), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}
}
