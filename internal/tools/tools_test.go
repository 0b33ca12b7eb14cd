package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/task"
)

// --- Helpers ---

func newStore(t *testing.T) *pdca.Store {
	t.Helper()
	return pdca.NewStore(t.TempDir())
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// isErrorResult checks if a CallToolResult represents an error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func writeDoc(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("# doc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- Definitions ---

func TestDefinitions(t *testing.T) {
	store := newStore(t)
	tracker := task.NewTracker(store, automation.Default(), debuglog.Nop())
	defs := map[string]mcp.Tool{
		"pdca_status":              NewStatusTool(store).Definition(),
		"pdca_update":              NewUpdateTool(store).Definition(),
		"pdca_advance":             NewAdvanceTool(store, automation.Default()).Definition(),
		"pdca_validate_transition": NewValidateTransitionTool(store).Definition(),
		"pdca_chain":               NewChainTool(store, tracker, nil).Definition(),
		"pdca_classify":            NewClassifyTool().Definition(),
		"pdca_ambiguity":           NewAmbiguityTool(store).Definition(),
	}
	for want, def := range defs {
		if def.Name != want {
			t.Errorf("name = %q, want %q", def.Name, want)
		}
	}
}

// --- StatusTool / UpdateTool ---

func TestStatusTool_Empty(t *testing.T) {
	result := call(t, NewStatusTool(newStore(t)).Handle, map[string]interface{}{})
	if !strings.Contains(getResultText(result), "No PDCA status yet") {
		t.Errorf("text = %q", getResultText(result))
	}
}

func TestUpdateTool_CreatesFeature(t *testing.T) {
	store := newStore(t)
	result := call(t, NewUpdateTool(store).Handle, map[string]interface{}{
		"feature":    "login",
		"phase":      "design",
		"match_rate": float64(70),
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "**login** is now in Design (phase 2)") {
		t.Errorf("text = %q", getResultText(result))
	}

	overview := getResultText(call(t, NewStatusTool(store).Handle, map[string]interface{}{}))
	for _, want := range []string{"**Primary:** login", "| login | ", "| 70% | 0 |"} {
		if !strings.Contains(overview, want) {
			t.Errorf("overview missing %q:\n%s", want, overview)
		}
	}

	detail := getResultText(call(t, NewStatusTool(store).Handle, map[string]interface{}{"feature": "login"}))
	if !strings.Contains(detail, `"phase": "design"`) {
		t.Errorf("detail = %s", detail)
	}
}

func TestUpdateTool_Strict(t *testing.T) {
	store := newStore(t)
	tool := NewUpdateTool(store)
	call(t, tool.Handle, map[string]interface{}{"feature": "login", "phase": "plan"})

	result := call(t, tool.Handle, map[string]interface{}{"feature": "login", "phase": "do", "strict": true})
	if !isErrorResult(result) {
		t.Fatal("expected plan → do to be rejected")
	}
	if !strings.Contains(getResultText(result), "Cannot skip") {
		t.Errorf("text = %q", getResultText(result))
	}

	result = call(t, tool.Handle, map[string]interface{}{"feature": "login", "phase": "do"})
	if isErrorResult(result) {
		t.Errorf("non-strict update failed: %s", getResultText(result))
	}
}

func TestUpdateTool_Errors(t *testing.T) {
	tool := NewUpdateTool(newStore(t))
	cases := []map[string]interface{}{
		{"phase": "plan"},
		{"feature": "x", "phase": "deploy"},
		{"feature": "x", "phase": "plan", "match_rate": float64(150)},
	}
	for _, args := range cases {
		if !isErrorResult(call(t, tool.Handle, args)) {
			t.Errorf("args %v: expected error", args)
		}
	}
}

// --- AdvanceTool ---

func TestAdvanceTool_NeedsDeliverable(t *testing.T) {
	store := newStore(t)
	if err := store.Update("login", pdca.PhasePlan, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	tool := NewAdvanceTool(store, automation.Default())

	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{})) {
		t.Fatal("expected missing plan doc to block")
	}

	writeDoc(t, store.Root(), "docs/01-plan/features/login.plan.md")
	result := call(t, tool.Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatalf("advance failed: %s", getResultText(result))
	}
	if !strings.Contains(getResultText(result), "plan → design") || !strings.Contains(getResultText(result), "`/pdca design login`") {
		t.Errorf("text = %q", getResultText(result))
	}
	if fs := store.Feature("login"); fs.Phase != pdca.PhaseDesign || fs.PreviousPhase != "plan" {
		t.Errorf("feature = %+v", fs)
	}
}

func TestAdvanceTool_CheckBranches(t *testing.T) {
	tests := []struct {
		rate int
		want pdca.Phase
		verb string
	}{
		{95, pdca.PhaseReport, "/pdca report login"},
		{60, pdca.PhaseAct, "/pdca iterate login"},
	}
	for _, tt := range tests {
		store := newStore(t)
		if err := store.Update("login", pdca.PhaseCheck, nil); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		result := call(t, NewAdvanceTool(store, automation.Default()).Handle, map[string]interface{}{
			"feature":    "login",
			"match_rate": float64(tt.rate),
			"force":      true,
		})
		if isErrorResult(result) {
			t.Fatalf("rate %d: %s", tt.rate, getResultText(result))
		}
		fs := store.Feature("login")
		if fs.Phase != tt.want {
			t.Errorf("rate %d: phase = %s, want %s", tt.rate, fs.Phase, tt.want)
		}
		if fs.MatchRate == nil || *fs.MatchRate != tt.rate {
			t.Errorf("rate %d: matchRate = %v", tt.rate, fs.MatchRate)
		}
		if !strings.Contains(getResultText(result), tt.verb) {
			t.Errorf("rate %d: text = %q", tt.rate, getResultText(result))
		}
	}
}

func TestAdvanceTool_ReportCompletes(t *testing.T) {
	store := newStore(t)
	if err := store.Update("login", pdca.PhaseReport, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	writeDoc(t, store.Root(), "docs/04-report/login.report.md")

	result := call(t, NewAdvanceTool(store, automation.Default()).Handle, map[string]interface{}{})
	if isErrorResult(result) {
		t.Fatalf("advance failed: %s", getResultText(result))
	}
	if fs := store.Feature("login"); fs.Phase != pdca.PhaseCompleted || fs.Timestamps["completed"] == "" {
		t.Errorf("feature = %+v", fs)
	}
}

func TestAdvanceTool_Untracked(t *testing.T) {
	result := call(t, NewAdvanceTool(newStore(t), automation.Default()).Handle, map[string]interface{}{"feature": "ghost"})
	if !isErrorResult(result) {
		t.Error("expected error for untracked feature")
	}
}

// --- ValidateTransitionTool ---

func TestValidateTransitionTool(t *testing.T) {
	tool := NewValidateTransitionTool(newStore(t))
	tests := []struct {
		from, to string
		valid    bool
	}{
		{"do", "plan", true},
		{"plan", "do", false},
		{"do", "check", true},
	}
	for _, tt := range tests {
		text := getResultText(call(t, tool.Handle, map[string]interface{}{
			"feature": "login", "from": tt.from, "to": tt.to,
		}))
		want := `"valid": false`
		if tt.valid {
			want = `"valid": true`
		}
		if !strings.Contains(text, want) {
			t.Errorf("%s → %s: %s", tt.from, tt.to, text)
		}
	}
}

func TestValidateTransitionTool_UsesCurrentPhase(t *testing.T) {
	store := newStore(t)
	if err := store.Update("login", pdca.PhaseDesign, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	text := getResultText(call(t, NewValidateTransitionTool(store).Handle, map[string]interface{}{"to": "do"}))
	if !strings.Contains(text, "design deliverable not found") {
		t.Errorf("text = %s", text)
	}
}

// --- ChainTool ---

func TestChainTool_CreateAndStatus(t *testing.T) {
	store := newStore(t)
	tool := NewChainTool(store, task.NewTracker(store, automation.Default(), debuglog.Nop()), nil)

	result := call(t, tool.Handle, map[string]interface{}{"feature": "login", "action": "create"})
	if isErrorResult(result) {
		t.Fatalf("create failed: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "Created 5 tasks for **login**") || !strings.Contains(text, "blocked by") {
		t.Errorf("create text = %s", text)
	}

	again := getResultText(call(t, tool.Handle, map[string]interface{}{"feature": "login", "action": "create"}))
	if !strings.Contains(again, "already exists") {
		t.Errorf("second create = %s", again)
	}

	status := getResultText(call(t, tool.Handle, map[string]interface{}{"feature": "login"}))
	if !strings.Contains(status, "| 🔄 plan | in_progress |") || !strings.Contains(status, "| ⬜ design | pending |") {
		t.Errorf("status = %s", status)
	}
}

// --- ClassifyTool / AmbiguityTool ---

func TestClassifyTool(t *testing.T) {
	content := strings.TrimSuffix(strings.Repeat("x\n", 60), "\n")
	text := getResultText(call(t, NewClassifyTool().Handle, map[string]interface{}{"content": content, "feature": "cart"}))
	for _, want := range []string{`"classification": "feature"`, `"pdcaLevel": "standard"`, `"lines": 60`, "/pdca-design cart"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %s", want, text)
		}
	}
}

func TestAmbiguityTool(t *testing.T) {
	tool := NewAmbiguityTool(newStore(t))

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"request": "fix it"}))
	if !strings.Contains(text, `"needsClarification": true`) || !strings.Contains(text, `"questions"`) {
		t.Errorf("vague request: %s", text)
	}

	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{"request": "  "})) {
		t.Error("expected error for blank request")
	}
}
