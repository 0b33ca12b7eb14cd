package memtools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestJournal opens a journal in a temp directory and seeds one session.
func newTestJournal(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(journal.Path(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.CreateSession("s1", "shop", "claude"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	seed := []journal.Event{
		{SessionID: "s1", Event: "SessionStart", Handler: "session-start"},
		{SessionID: "s1", Event: "PreToolUse", Handler: "bash-pre", ToolName: "Bash", Decision: "block", Message: "rm -rf / is not allowed"},
		{SessionID: "s1", Event: "PostToolUse", Handler: "write-post", ToolName: "Write", Feature: "login", Phase: "do", Message: "wrote src/login.ts"},
	}
	for _, e := range seed {
		if _, err := store.Record(e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	return store
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ─── SearchTool Tests ────────────────────────────────────────────────────────

func TestSearchTool(t *testing.T) {
	tool := NewSearchTool(newTestJournal(t))
	if tool.Definition().Name != "journal_search" {
		t.Errorf("name = %s", tool.Definition().Name)
	}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "rm"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := resultText(result)
	if !strings.Contains(text, "Found 1 entries") || !strings.Contains(text, "PreToolUse/bash-pre [block]") {
		t.Errorf("unexpected result:\n%s", text)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "nonexistent"}))
	if !strings.Contains(resultText(result), "No journal entries") {
		t.Errorf("unexpected result: %s", resultText(result))
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing query")
	}
}

// ─── RecentTool Tests ────────────────────────────────────────────────────────

func TestRecentTool_Filters(t *testing.T) {
	tool := NewRecentTool(newTestJournal(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := resultText(result)
	if strings.Index(text, "PostToolUse") > strings.Index(text, "SessionStart") {
		t.Errorf("expected newest first:\n%s", text)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"feature": "login"}))
	text = resultText(result)
	if !strings.Contains(text, "feature: login | phase: do") || strings.Contains(text, "SessionStart") {
		t.Errorf("feature filter:\n%s", text)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"event": "Stop"}))
	if !strings.Contains(resultText(result), "no matching entries") {
		t.Errorf("event filter: %s", resultText(result))
	}
}

// ─── StatsTool / ContextTool / SessionTool Tests ────────────────────────────

func TestStatsTool(t *testing.T) {
	result, err := NewStatsTool(newTestJournal(t)).Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := resultText(result)
	for _, want := range []string{"**Sessions**: 1", "**Hook runs**: 3", "**Blocked**: 1", "| PreToolUse | 1 |"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestContextTool(t *testing.T) {
	tool := NewContextTool(newTestJournal(t))

	result, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{"feature": "login"}))
	text := resultText(result)
	if !strings.Contains(text, "## Recent Hook Activity") || !strings.Contains(text, "wrote src/login.ts") {
		t.Errorf("unexpected context:\n%s", text)
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"feature": "cart"}))
	if !strings.Contains(resultText(result), "No hook activity") {
		t.Errorf("unexpected context: %s", resultText(result))
	}
}

func TestSessionTool(t *testing.T) {
	store := newTestJournal(t)
	tool := NewSessionTool(store)

	result, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "s1"}))
	text := resultText(result)
	for _, want := range []string{"## Session s1", "**Platform**: claude", "(active)", "### Hooks (3)"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}

	if err := store.EndSession("s1"); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "s1"}))
	if strings.Contains(resultText(result), "(active)") {
		t.Errorf("ended session still active:\n%s", resultText(result))
	}

	result, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": "nope"}))
	if !result.IsError || !strings.Contains(resultText(result), "not found") {
		t.Errorf("expected not found, got %s", resultText(result))
	}
}

// ─── MemoryTool Tests ────────────────────────────────────────────────────────

func TestMemoryTool_Lifecycle(t *testing.T) {
	store := memory.New(t.TempDir(), nil)
	tool := NewMemoryTool(store)
	ctx := context.Background()

	result, _ := tool.Handle(ctx, makeReq(map[string]interface{}{"action": "list"}))
	if resultText(result) != "Memory is empty." {
		t.Errorf("list empty = %q", resultText(result))
	}

	result, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "set", "key": "onboarded", "value": "true"}))
	if result.IsError {
		t.Fatalf("set failed: %s", resultText(result))
	}
	if v, ok := store.Get("onboarded", nil).(bool); !ok || !v {
		t.Errorf("onboarded = %v, want JSON true", store.Get("onboarded", nil))
	}

	_, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "set", "key": "note", "value": "plain text"}))
	if got := store.Get("note", nil); got != "plain text" {
		t.Errorf("note = %v", got)
	}

	result, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "get", "key": "note"}))
	if resultText(result) != `"plain text"` {
		t.Errorf("get = %q", resultText(result))
	}

	result, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "list"}))
	if !strings.Contains(resultText(result), "## Memory (2 keys)") {
		t.Errorf("list = %s", resultText(result))
	}

	result, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "delete", "key": "note"}))
	if resultText(result) != "Deleted note" {
		t.Errorf("delete = %q", resultText(result))
	}
	result, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"action": "get", "key": "note"}))
	if !result.IsError {
		t.Error("expected error for deleted key")
	}
}

func TestMemoryTool_Validation(t *testing.T) {
	tool := NewMemoryTool(memory.New(t.TempDir(), nil))
	for _, args := range []map[string]interface{}{
		{"action": "get"},
		{"action": "drop", "key": "x"},
		{},
	} {
		result, err := tool.Handle(context.Background(), makeReq(args))
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected error", args)
		}
	}
}
