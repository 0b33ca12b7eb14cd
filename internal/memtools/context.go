package memtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// ContextTool handles the journal_context MCP tool.
type ContextTool struct {
	store *journal.Store
}

// NewContextTool creates a ContextTool.
func NewContextTool(store *journal.Store) *ContextTool {
	return &ContextTool{store: store}
}

// Definition returns the MCP tool definition for journal_context.
func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_context",
		mcp.WithDescription(
			"Summarize recent hook activity as markdown, for resuming work on a feature "+
				"in a new session.",
		),
		mcp.WithString("feature",
			mcp.Description("Feature to summarize (omit for all activity)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Number of entries (default: 15)"),
		),
	)
}

// Handle processes the journal_context tool call.
func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formatted, err := t.store.FormatContext(req.GetString("feature", ""), clamp(intArg(req, "limit", 15), 100))
	if err != nil {
		return mcp.NewToolResultText("No journal context available."), nil
	}
	if formatted == "" {
		return mcp.NewToolResultText("No hook activity recorded yet."), nil
	}
	return mcp.NewToolResultText(formatted), nil
}
