package memtools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// SessionTool handles the journal_session MCP tool.
type SessionTool struct {
	store *journal.Store
}

// NewSessionTool creates a SessionTool.
func NewSessionTool(store *journal.Store) *SessionTool {
	return &SessionTool{store: store}
}

// Definition returns the MCP tool definition for journal_session.
func (t *SessionTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_session",
		mcp.WithDescription(
			"Show one session: when it started and ended, on which platform, and the hooks it ran.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Session ID, as shown by journal_recent"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max hook entries to list (default: 30)"),
		),
	)
}

// Handle processes the journal_session tool call.
func (t *SessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	sess, err := t.store.GetSession(id)
	if errors.Is(err, sql.ErrNoRows) {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Session %s\n\n", sess.ID)
	fmt.Fprintf(&b, "- **Project**: %s\n", sess.Project)
	fmt.Fprintf(&b, "- **Platform**: %s\n", sess.Platform)
	fmt.Fprintf(&b, "- **Started**: %s\n", sess.StartedAt)
	if sess.EndedAt != nil {
		fmt.Fprintf(&b, "- **Ended**: %s\n", *sess.EndedAt)
	} else {
		b.WriteString("- **Ended**: (active)\n")
	}

	events, err := t.store.Recent(journal.Filter{SessionID: id, Limit: clamp(intArg(req, "limit", 30), 200)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list entries: %v", err)), nil
	}
	if len(events) > 0 {
		fmt.Fprintf(&b, "\n### Hooks (%d)\n\n%s", len(events), formatEvents(events))
	}
	return mcp.NewToolResultText(b.String()), nil
}
