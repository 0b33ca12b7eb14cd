package validate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func put(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// plugin lays out a minimal valid plugin.
func plugin(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	put(t, root, "plugin.json", `{"name":"bkit","version":"1.5.0"}`)
	put(t, root, "CLAUDE.md", "# bkit\n")
	put(t, root, "README.md", "readme\n")
	put(t, root, "skills/pdca/SKILL.md", "---\nname: pdca\ndescription: PDCA cycle\n---\nbody\n")
	put(t, root, "agents/gap-detector.md", "---\nname: gap-detector\n---\nbody\n")
	put(t, root, "commands/pdca.md", "run pdca\n")
	return root
}

// --- Run ---

func TestRun_ValidPlugin(t *testing.T) {
	r, err := Run(context.Background(), plugin(t), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !r.Valid {
		t.Fatalf("expected valid, errors: %v", r.Stats.Errors)
	}
	if r.Plugin != "bkit v1.5.0" {
		t.Errorf("Plugin = %q", r.Plugin)
	}
	want := Counts{Total: 1, Valid: 1}
	for name, got := range map[string]Counts{"skills": r.Stats.Skills, "agents": r.Stats.Agents, "commands": r.Stats.Commands} {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s counts mismatch (-want +got):\n%s", name, diff)
		}
	}
	found := false
	for _, n := range r.Notes {
		if n == "Valid command: pdca" {
			found = true
		}
	}
	if !found {
		t.Errorf("Notes missing command line: %v", r.Notes)
	}
}

func TestRun_ReportsErrors(t *testing.T) {
	root := plugin(t)
	put(t, root, "plugin.json", `{"name":"bkit"}`)
	if err := os.Remove(filepath.Join(root, "README.md")); err != nil {
		t.Fatal(err)
	}
	put(t, root, "skills/broken/SKILL.md", "no frontmatter\n")
	put(t, root, "skills/quiet/SKILL.md", "---\nname: quiet\n---\n")
	put(t, root, "agents/nameless.md", "---\nmodel: opus\n---\nbody\n")

	r, err := Run(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Valid {
		t.Fatal("expected invalid report")
	}

	joined := strings.Join(r.Stats.Errors, "\n")
	for _, want := range []string{
		"Missing required file: README.md",
		`plugin.json missing "version" field`,
		"Skill missing frontmatter: ",
		"Agent missing 'name' in frontmatter: ",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors missing %q:\n%s", want, joined)
		}
	}
	if len(r.Stats.Warnings) != 1 || !strings.Contains(r.Stats.Warnings[0], "quiet") {
		t.Errorf("Warnings = %v", r.Stats.Warnings)
	}
	if diff := cmp.Diff(Counts{Total: 3, Valid: 2, Invalid: 1}, r.Stats.Skills); diff != "" {
		t.Errorf("skill counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_HookReferences(t *testing.T) {
	root := plugin(t)
	put(t, root, "scripts/pre-write.js", "// script\n")
	put(t, root, "skills/dev/SKILL.md", `---
name: dev
description: dev
hooks:
  PreToolUse:
    - command: "${CLAUDE_PLUGIN_ROOT}/scripts/pre-write.sh"
    - command: "${CLAUDE_PLUGIN_ROOT}/scripts/missing.js"
    - command: "bkit hook run pre-write"
    - command: "bkit hook run nope"
---
body
`)

	known := func(name string) bool { return name == "pre-write" }
	r, err := Run(context.Background(), root, Options{KnownHandler: known, Concurrency: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff(Counts{Total: 4, Valid: 2, Invalid: 2}, r.Stats.Hooks); diff != "" {
		t.Errorf("hook counts mismatch (-want +got):\n%s", diff)
	}
	joined := strings.Join(r.Stats.Errors, "\n")
	if !strings.Contains(joined, "Missing hook script: missing.js") || !strings.Contains(joined, "Unknown hook handler: nope") {
		t.Errorf("errors = %s", joined)
	}
}

func TestReport_JSON(t *testing.T) {
	r, err := Run(context.Background(), plugin(t), Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["valid"] != true {
		t.Errorf("valid = %v", doc["valid"])
	}
	stats, _ := doc["stats"].(map[string]any)
	if _, ok := stats["hooks"]; !ok {
		t.Errorf("stats = %v", stats)
	}
	if _, ok := doc["Notes"]; ok {
		t.Error("notes leaked into JSON")
	}
}
