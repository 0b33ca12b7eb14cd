// Package memtools provides MCP tool handlers over bkit's cross-session
// stores: the hook journal and the project memory document.
//
// Each tool handler follows the same pattern as internal/tools:
// - A struct with its store injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
package memtools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// clamp bounds a limit argument to [1, max].
func clamp(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// formatEvents renders journal events one per entry, numbered.
func formatEvents(events []journal.Event) string {
	var b strings.Builder
	for i, e := range events {
		fmt.Fprintf(&b, "[%d] #%d %s %s", i+1, e.ID, e.CreatedAt, e.Event)
		if e.Handler != "" {
			b.WriteString("/" + e.Handler)
		}
		if e.Decision != "" {
			fmt.Fprintf(&b, " [%s]", e.Decision)
		}
		b.WriteString("\n")

		var meta []string
		if e.ToolName != "" {
			meta = append(meta, "tool: "+e.ToolName)
		}
		if e.Feature != "" {
			meta = append(meta, "feature: "+e.Feature)
		}
		if e.Phase != "" {
			meta = append(meta, "phase: "+e.Phase)
		}
		if e.SessionID != "" {
			meta = append(meta, "session: "+e.SessionID)
		}
		if len(meta) > 0 {
			fmt.Fprintf(&b, "    %s\n", strings.Join(meta, " | "))
		}
		if e.Message != "" {
			fmt.Fprintf(&b, "    %s\n", journal.Truncate(e.Message, 300))
		}
		b.WriteString("\n")
	}
	return b.String()
}
