package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// SearchTool handles the journal_search MCP tool.
type SearchTool struct {
	store *journal.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *journal.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for journal_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_search",
		mcp.WithDescription(
			"Full-text search over the hook journal: every hook bkit ran, across sessions. "+
				"Matches event names, handlers, tool names, features and messages.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keywords, e.g. 'rm block' or 'login gap'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 50)"),
		),
	)
}

// Handle processes the journal_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	events, err := t.store.Search(query, clamp(intArg(req, "limit", 10), 50))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("No journal entries match your query."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d entries:\n\n%s", len(events), formatEvents(events))), nil
}
