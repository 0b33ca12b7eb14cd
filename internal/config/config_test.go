package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bkit-dev/bkit/internal/platform"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// --- Load ---

func TestLoad_ProjectWinsOverPlugin(t *testing.T) {
	project, plugin := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(project, JSONFile), `{"pdca":{"matchRateThreshold":80}}`)
	writeFile(t, filepath.Join(plugin, JSONFile), `{"pdca":{"matchRateThreshold":70}}`)

	cfg, err := Load(platform.Env{ProjectDir: project, PluginRoot: plugin})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Int("pdca.matchRateThreshold", 0); got != 80 {
		t.Errorf("matchRateThreshold = %d, want 80", got)
	}
	if cfg.Source() != filepath.Join(project, JSONFile) {
		t.Errorf("Source = %s", cfg.Source())
	}
}

func TestLoad_CorruptProjectFallsBackToPlugin(t *testing.T) {
	project, plugin := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(project, JSONFile), `{not json`)
	writeFile(t, filepath.Join(plugin, JSONFile), `{"level":"Enterprise"}`)

	cfg, err := Load(platform.Env{ProjectDir: project, PluginRoot: plugin})
	if err == nil {
		t.Error("expected parse error to be reported")
	}
	if got := cfg.String("level", ""); got != "Enterprise" {
		t.Errorf("level = %q, want Enterprise", got)
	}
}

func TestLoad_NothingFoundIsEmpty(t *testing.T) {
	cfg, err := Load(platform.Env{ProjectDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Data()) != 0 {
		t.Errorf("Data = %v, want empty", cfg.Data())
	}
}

func TestLoadDir_TOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, TOMLFile), "level = \"Dynamic\"\n\n[pdca]\nmaxIterations = 3\n")

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if cfg.String("level", "") != "Dynamic" {
		t.Errorf("level = %q", cfg.String("level", ""))
	}
	if got := cfg.Int("pdca.maxIterations", 0); got != 3 {
		t.Errorf("maxIterations = %d, want 3", got)
	}
}

// --- Accessors ---

func TestAccessors(t *testing.T) {
	cfg := New(map[string]any{
		"a": map[string]any{
			"n":     float64(7),
			"f":     0.5,
			"b":     true,
			"list":  []any{"x", "y", 3.0},
			"empty": nil,
		},
	})

	if got := cfg.Int("a.n", 0); got != 7 {
		t.Errorf("Int = %d", got)
	}
	if got := cfg.Float("a.f", 0); got != 0.5 {
		t.Errorf("Float = %v", got)
	}
	if !cfg.Bool("a.b", false) {
		t.Error("Bool = false")
	}
	if diff := cmp.Diff([]string{"x", "y"}, cfg.Strings("a.list", nil)); diff != "" {
		t.Errorf("Strings mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Joined("a.list", ""); got != "x y 3" {
		t.Errorf("Joined = %q", got)
	}
	if got := cfg.String("a.empty", "def"); got != "def" {
		t.Errorf("null value should fall back, got %q", got)
	}
	if got := cfg.String("a.n.deeper", "def"); got != "def" {
		t.Errorf("walk through scalar = %q", got)
	}
}

func TestNilConfigIsEmpty(t *testing.T) {
	var cfg *Config
	if got := cfg.Int("x", 4); got != 4 {
		t.Errorf("Int on nil = %d", got)
	}
}

// --- Typed ---

func TestTyped_Defaults(t *testing.T) {
	getenv = func(string) string { return "" }
	t.Cleanup(func() { getenv = os.Getenv })

	b := New(nil).Typed()
	if b.PDCA.MatchRateThreshold != 90 || b.PDCA.MaxIterations != 5 {
		t.Errorf("pdca = %+v", b.PDCA)
	}
	if b.PDCA.AutomationLevel != AutomationSemiAuto {
		t.Errorf("AutomationLevel = %s", b.PDCA.AutomationLevel)
	}
	if diff := cmp.Diff([]string{"design"}, b.PDCA.ReviewCheckpoints); diff != "" {
		t.Errorf("ReviewCheckpoints (-want +got):\n%s", diff)
	}
	if b.Triggers.ConfidenceThreshold != 0.7 {
		t.Errorf("ConfidenceThreshold = %v", b.Triggers.ConfidenceThreshold)
	}
	if b.Cache.TTL != 5000 || b.MultiFeature.MaxActiveFeatures != 5 {
		t.Errorf("cache/multi = %+v %+v", b.Cache, b.MultiFeature)
	}
	if diff := cmp.Diff(DefaultFeaturePatterns, b.FeaturePatterns); diff != "" {
		t.Errorf("FeaturePatterns (-want +got):\n%s", diff)
	}
}

func TestTyped_EnvOverridesAutomation(t *testing.T) {
	getenv = func(k string) string {
		if k == "BKIT_PDCA_AUTOMATION" {
			return "full-auto"
		}
		return ""
	}
	t.Cleanup(func() { getenv = os.Getenv })

	cfg := New(map[string]any{"pdca": map[string]any{"automationLevel": "manual"}})
	if got := cfg.Typed().PDCA.AutomationLevel; got != AutomationFullAuto {
		t.Errorf("AutomationLevel = %s, want full-auto", got)
	}
}

func TestTyped_InvalidAutomationFallsBack(t *testing.T) {
	getenv = func(string) string { return "turbo" }
	t.Cleanup(func() { getenv = os.Getenv })

	cfg := New(map[string]any{"pdca": map[string]any{"automationLevel": "bogus"}})
	if got := cfg.Typed().PDCA.AutomationLevel; got != AutomationSemiAuto {
		t.Errorf("AutomationLevel = %s, want semi-auto", got)
	}
}

// --- Hierarchy ---

func newTestHierarchy(t *testing.T) (*Hierarchy, platform.Env, string) {
	t.Helper()
	home := t.TempDir()
	userHomeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() { userHomeDir = os.UserHomeDir })

	env := platform.Env{Platform: platform.Claude, ProjectDir: t.TempDir(), PluginRoot: t.TempDir()}
	return NewHierarchy(env), env, home
}

func TestHierarchy_MergeAndConflicts(t *testing.T) {
	h, env, home := newTestHierarchy(t)
	writeFile(t, filepath.Join(env.PluginRoot, JSONFile), `{"level":"Starter","plugin":1}`)
	writeFile(t, filepath.Join(home, ".claude", "bkit", UserConfigFile), `{"level":"Dynamic"}`)
	writeFile(t, filepath.Join(env.ProjectDir, JSONFile), `{"level":"Enterprise","plugin":1}`)

	m := h.Get(true)
	if len(m.Levels) != 4 {
		t.Fatalf("levels = %d, want 4", len(m.Levels))
	}
	if m.Merged["level"] != "Enterprise" {
		t.Errorf("level = %v, want Enterprise", m.Merged["level"])
	}
	if len(m.Conflicts) != 2 {
		t.Fatalf("conflicts = %d, want 2: %+v", len(m.Conflicts), m.Conflicts)
	}
	last := m.Conflicts[1]
	if last.Key != "level" || last.Resolved != "Enterprise" {
		t.Errorf("last conflict = %+v", last)
	}
	want := []LevelValue{
		{LevelPlugin, "Starter"},
		{LevelUser, "Dynamic"},
		{LevelProject, "Enterprise"},
	}
	if diff := cmp.Diff(want, last.Values); diff != "" {
		t.Errorf("conflict values (-want +got):\n%s", diff)
	}
}

func TestHierarchy_SessionOverridesAndInvalidates(t *testing.T) {
	h, env, _ := newTestHierarchy(t)
	writeFile(t, filepath.Join(env.ProjectDir, JSONFile), `{"pdca":{"maxIterations":5}}`)

	if got := h.Config().Int("pdca.maxIterations", 0); got != 5 {
		t.Fatalf("maxIterations = %d, want 5", got)
	}
	h.SetSession("pdca", map[string]any{"maxIterations": 2})
	if got := h.Config().Int("pdca.maxIterations", 0); got != 2 {
		t.Errorf("after SetSession maxIterations = %d, want 2", got)
	}
	if h.Session("pdca", nil) == nil {
		t.Error("Session should return stored value")
	}

	h.ClearSession()
	if got := h.Value("pdca.maxIterations", 0.0); got != 5.0 {
		t.Errorf("after ClearSession = %v, want 5", got)
	}
	if len(h.AllSession()) != 0 {
		t.Error("AllSession should be empty")
	}
}

func TestHierarchy_CacheTTL(t *testing.T) {
	h, env, _ := newTestHierarchy(t)
	now := time.Unix(100, 0)
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })

	path := filepath.Join(env.ProjectDir, JSONFile)
	writeFile(t, path, `{"level":"Starter"}`)
	h.Get(false)

	writeFile(t, path, `{"level":"Dynamic"}`)
	if got := h.Get(false).Merged["level"]; got != "Starter" {
		t.Errorf("cached level = %v, want Starter", got)
	}
	now = now.Add(HierarchyTTL)
	if got := h.Get(false).Merged["level"]; got != "Dynamic" {
		t.Errorf("expired level = %v, want Dynamic", got)
	}
}
