package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// RecentTool handles the journal_recent MCP tool.
type RecentTool struct {
	store *journal.Store
}

// NewRecentTool creates a RecentTool.
func NewRecentTool(store *journal.Store) *RecentTool {
	return &RecentTool{store: store}
}

// Definition returns the MCP tool definition for journal_recent.
func (t *RecentTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_recent",
		mcp.WithDescription(
			"List the newest hook journal entries, newest first. "+
				"Narrow by session, feature or hook event.",
		),
		mcp.WithString("session_id",
			mcp.Description("Only entries from this session"),
		),
		mcp.WithString("feature",
			mcp.Description("Only entries touching this PDCA feature"),
		),
		mcp.WithString("event",
			mcp.Description("Only this hook event, e.g. PreToolUse"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20, max: 100)"),
		),
	)
}

// Handle processes the journal_recent tool call.
func (t *RecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	events, err := t.store.Recent(journal.Filter{
		SessionID: req.GetString("session_id", ""),
		Feature:   req.GetString("feature", ""),
		Event:     req.GetString("event", ""),
		Limit:     clamp(intArg(req, "limit", 20), 100),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list entries: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("The journal has no matching entries yet."), nil
	}
	return mcp.NewToolResultText(formatEvents(events)), nil
}
