package memtools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
)

// MemoryTool handles the bkit_memory MCP tool.
type MemoryTool struct {
	store *memory.Store
}

// NewMemoryTool creates a MemoryTool with the given memory store.
func NewMemoryTool(store *memory.Store) *MemoryTool {
	return &MemoryTool{store: store}
}

// Definition returns the MCP tool definition for bkit_memory.
func (t *MemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("bkit_memory",
		mcp.WithDescription(
			"Read and write the project memory: small key/value facts that survive across sessions, "+
				"such as the session count or onboarding state.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("list, get, set or delete"),
			mcp.Enum("list", "get", "set", "delete"),
		),
		mcp.WithString("key",
			mcp.Description("Key to read, write or delete"),
		),
		mcp.WithString("value",
			mcp.Description("Value for set. Parsed as JSON when valid, otherwise stored as a string."),
		),
	)
}

// Handle processes the bkit_memory tool call.
func (t *MemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action := req.GetString("action", "")
	key := req.GetString("key", "")
	if action != "list" && action != "" && key == "" {
		return mcp.NewToolResultError("'key' is required"), nil
	}

	switch action {
	case "list":
		keys := t.store.Keys()
		if len(keys) == 0 {
			return mcp.NewToolResultText("Memory is empty."), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "## Memory (%d keys)\n\n", len(keys))
		for _, k := range keys {
			data, _ := json.Marshal(t.store.Get(k, nil))
			fmt.Fprintf(&b, "- **%s**: %s\n", k, journal.Truncate(string(data), 200))
		}
		return mcp.NewToolResultText(b.String()), nil

	case "get":
		if !t.store.Has(key) {
			return mcp.NewToolResultError(fmt.Sprintf("key %q not found", key)), nil
		}
		data, err := json.MarshalIndent(t.store.Get(key, nil), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", key, err)
		}
		return mcp.NewToolResultText(string(data)), nil

	case "set":
		raw := req.GetString("value", "")
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		if err := t.store.Set(key, value); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save %s: %v", key, err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Saved %s", key)), nil

	case "delete":
		existed, err := t.store.Delete(key)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete %s: %v", key, err)), nil
		}
		if !existed {
			return mcp.NewToolResultText(fmt.Sprintf("%s was not set", key)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", key)), nil
	}
	return mcp.NewToolResultError("'action' must be one of list, get, set, delete"), nil
}
