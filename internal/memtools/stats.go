package memtools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// StatsTool handles the journal_stats MCP tool.
type StatsTool struct {
	store *journal.Store
}

// NewStatsTool creates a StatsTool with the given journal.
func NewStatsTool(store *journal.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for journal_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("journal_stats",
		mcp.WithDescription(
			"Show hook journal statistics: sessions, recorded hook runs, blocked calls and counts per event.",
		),
	)
}

// Handle processes the journal_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Journal Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Sessions**: %d\n", stats.TotalSessions))
	sb.WriteString(fmt.Sprintf("- **Hook runs**: %d\n", stats.TotalEvents))
	sb.WriteString(fmt.Sprintf("- **Blocked**: %d\n", stats.Blocked))

	if len(stats.ByEvent) > 0 {
		names := make([]string, 0, len(stats.ByEvent))
		for name := range stats.ByEvent {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("\n| Event | Runs |\n|-------|------|\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", name, stats.ByEvent[name]))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
