package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- Dir ---

func TestDir_PrefersPlugin(t *testing.T) {
	plugin, project := t.TempDir(), t.TempDir()
	env := platform.Env{Platform: platform.Claude, PluginRoot: plugin, ProjectDir: project}

	if got := Dir(env); got != filepath.Join(project, "templates") {
		t.Errorf("Dir without plugin templates = %q", got)
	}

	if err := os.Mkdir(filepath.Join(plugin, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := Dir(env); got != filepath.Join(plugin, "templates") {
		t.Errorf("Dir with plugin templates = %q", got)
	}
}

// --- Select ---

func TestSelect(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "plan.template.md"), "# plan")
	touch(t, filepath.Join(dir, "plan-starter.template.md"), "# starter plan")
	touch(t, filepath.Join(dir, "design.template.md"), "# design")

	tests := []struct {
		kind  string
		level pdca.Level
		want  string
	}{
		{"plan", pdca.LevelStarter, "plan-starter.template.md"},
		{"plan", pdca.LevelDynamic, "plan.template.md"},
		{"plan", pdca.LevelEnterprise, "plan.template.md"},
		{"design", pdca.LevelStarter, "design.template.md"},
	}
	for _, tt := range tests {
		got, err := Select(dir, tt.kind, tt.level)
		if err != nil {
			t.Fatalf("Select(%s, %s) failed: %v", tt.kind, tt.level, err)
		}
		if filepath.Base(got) != tt.want {
			t.Errorf("Select(%s, %s) = %s, want %s", tt.kind, tt.level, filepath.Base(got), tt.want)
		}
	}
}

func TestSelect_Missing(t *testing.T) {
	_, err := Select(t.TempDir(), "report", pdca.LevelDynamic)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- Variables ---

func TestVariables_FromPackageJSON(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 5, 6, 7, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	root := t.TempDir()
	touch(t, filepath.Join(root, "package.json"), `{"name":"shop","version":"1.2.0"}`)
	touch(t, filepath.Join(root, "CLAUDE.md"), "# Ignored\n")

	got := Variables(root, "/t/plan.template.md", "cart", pdca.LevelDynamic)
	want := Vars{
		Template: "/t/plan.template.md",
		Level:    "Dynamic",
		Feature:  "cart",
		Date:     "2026-05-06",
		Project:  "shop",
		Version:  "1.2.0",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Variables mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectInfo_FallsBackToClaudeMD(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "package.json"), `{"version":"0.1.0"}`)
	touch(t, filepath.Join(root, "CLAUDE.md"), "intro\n# My Project\n## Section\n")

	name, version := ProjectInfo(root)
	if name != "My Project" || version != "0.1.0" {
		t.Errorf("ProjectInfo = (%q, %q)", name, version)
	}
}
