package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
)

func newSession(t *testing.T, opts Options) *Session {
	t.Helper()
	root := t.TempDir()
	env := platform.Env{Platform: platform.Claude, PluginRoot: root, ProjectDir: root}
	opts.Logger = debuglog.Nop()
	s := New(env, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	orig := getenv
	getenv = func(k string) string { return vars[k] }
	t.Cleanup(func() { getenv = orig })
}

func TestNew_Wiring(t *testing.T) {
	withEnv(t, nil)
	s := newSession(t, Options{})
	if s.ID == "" {
		t.Error("session ID not generated")
	}
	if s.Store == nil || s.Tracker == nil || s.Memory == nil || s.Forks == nil || s.Skills == nil {
		t.Fatal("session services not wired")
	}
	if s.Store.Root() != s.Env.ProjectDir {
		t.Errorf("store root = %q", s.Store.Root())
	}
	if s.Policy.MatchRateThreshold != 90 {
		t.Errorf("threshold = %d, want default 90", s.Policy.MatchRateThreshold)
	}
}

func TestActiveSkillSources(t *testing.T) {
	withEnv(t, map[string]string{"BKIT_ACTIVE_SKILL": "from-env", "BKIT_ACTIVE_AGENT": "qa-monitor"})

	s := newSession(t, Options{Skill: "phase-9-deployment"})
	if s.ActiveSkill != "phase-9-deployment" {
		t.Errorf("flag should win, got %q", s.ActiveSkill)
	}
	if s.ActiveAgent != "qa-monitor" {
		t.Errorf("agent = %q", s.ActiveAgent)
	}

	s = newSession(t, Options{})
	if s.ActiveSkill != "from-env" {
		t.Errorf("env fallback = %q", s.ActiveSkill)
	}

	withEnv(t, nil)
	s = newSession(t, Options{})
	s.Observe(hookio.NewInput(map[string]any{
		"tool_name":  "Skill",
		"tool_input": map[string]any{"skill": "pdca"},
	}))
	if s.ActiveSkill != "pdca" {
		t.Errorf("Skill tool input = %q", s.ActiveSkill)
	}
}

func TestLevel(t *testing.T) {
	withEnv(t, map[string]string{"BKIT_LEVEL": "Enterprise"})
	s := newSession(t, Options{})
	if s.Level() != pdca.LevelEnterprise {
		t.Errorf("Level = %s", s.Level())
	}

	withEnv(t, map[string]string{"BKIT_LEVEL": "bogus"})
	if !pdca.ValidLevel(string(s.Level())) {
		t.Errorf("invalid override should fall back to detection, got %q", s.Level())
	}
}

func TestValues(t *testing.T) {
	withEnv(t, nil)
	s := newSession(t, Options{})
	if s.Value("forkEnabledSkills", "none") != "none" {
		t.Error("unset value should return default")
	}
	s.Set("forkEnabledSkills", []string{"a"})
	if got, _ := s.Value("forkEnabledSkills", nil).([]string); len(got) != 1 {
		t.Errorf("Value = %v", got)
	}
}

func TestRecord(t *testing.T) {
	withEnv(t, nil)
	s := newSession(t, Options{})
	s.Record(journal.Event{Event: "PreToolUse", Handler: "pre-write", Decision: "allow"})

	if _, err := os.Stat(filepath.Join(s.Env.ProjectDir, filepath.FromSlash(journal.FileName))); err != nil {
		t.Fatalf("journal not created: %v", err)
	}
	j, err := s.Journal()
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	events, err := j.Recent(journal.Filter{SessionID: s.ID})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 1 || events[0].Handler != "pre-write" {
		t.Errorf("events = %+v", events)
	}
}
