package task

import (
	"strings"
	"testing"
	"time"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/pdca"
)

func newTracker(t *testing.T, level string) (*Tracker, *pdca.Store) {
	t.Helper()
	store := pdca.NewStore(t.TempDir())
	p := automation.Default()
	p.Level = level
	p.ReviewCheckpoints = nil
	return NewTracker(store, p, nil), store
}

func tickingClock(t *testing.T) {
	t.Helper()
	old := timeNow
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	timeNow = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
	t.Cleanup(func() { timeNow = old })
}

// --- Classification ---

func TestClassify(t *testing.T) {
	tests := []struct {
		n    int
		want Classification
	}{
		{0, Trivial},
		{200, Trivial},
		{201, Minor},
		{1000, Minor},
		{5000, Feature},
		{5001, Major},
	}
	for _, tt := range tests {
		if got := Classify(strings.Repeat("x", tt.n)); got != tt.want {
			t.Errorf("Classify(%d chars) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestClassifyByLines(t *testing.T) {
	lines := func(n int) string { return strings.Repeat("a\n", n-1) + "a" }
	tests := []struct {
		n    int
		want Classification
	}{
		{10, Trivial},
		{11, Minor},
		{50, Minor},
		{200, Feature},
		{201, Major},
	}
	for _, tt := range tests {
		if got := ClassifyByLines(lines(tt.n)); got != tt.want {
			t.Errorf("ClassifyByLines(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestPdcaLevelAndGuidance(t *testing.T) {
	if PdcaLevel(Trivial) != LevelNone || PdcaLevel(Major) != LevelFull || PdcaLevel("odd") != LevelLight {
		t.Error("PdcaLevel mapping wrong")
	}
	if got := GuidanceByLevel(LevelFull, "login", 300); got != "Major feature (300 lines) without design doc. Strongly recommend /pdca-design login first." {
		t.Errorf("GuidanceByLevel = %s", got)
	}
	if Guidance(Trivial) != "Trivial change. No PDCA needed." {
		t.Errorf("Guidance = %s", Guidance(Trivial))
	}
}

// --- Creator ---

func TestSubjectAndDescription(t *testing.T) {
	if got := Subject(pdca.PhaseCheck, "login"); got != "🔍 [Check] login" {
		t.Errorf("Subject = %s", got)
	}
	if got := Subject("custom", "login"); !strings.HasPrefix(got, "📌 ") {
		t.Errorf("Subject(custom) = %s", got)
	}
	got := Description(pdca.PhaseDo, "login", "docs/02-design/features/login.design.md")
	if !strings.HasPrefix(got, "Implementation phase for login.") || !strings.HasSuffix(got, "\n\nReference: docs/02-design/features/login.design.md") {
		t.Errorf("Description = %q", got)
	}
}

func TestTaskGuidance_Blocked(t *testing.T) {
	got := TaskGuidance(pdca.PhaseDo, "login", pdca.PhaseDesign)
	for _, want := range []string{"Phase: do\nFeature: login\n\n", "⚠️ Blocked by: design phase", "Implement according to the design document."} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

// --- Tracker ---

func TestCreateChain_EndToEnd(t *testing.T) {
	tickingClock(t)
	tr, store := newTracker(t, config.AutomationSemiAuto)
	if err := store.Update("login", pdca.PhasePlan, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	chain, err := tr.CreateChain("login", Options{})
	if err != nil {
		t.Fatalf("CreateChain failed: %v", err)
	}
	if len(chain.Tasks) != len(ChainPhases) {
		t.Fatalf("tasks = %d, want %d", len(chain.Tasks), len(ChainPhases))
	}
	if len(chain.Tasks[pdca.PhasePlan].BlockedBy) != 0 {
		t.Error("plan should not be blocked")
	}
	if chain.Tasks[pdca.PhaseDesign].BlockedBy[0] != chain.Tasks[pdca.PhasePlan].ID {
		t.Error("design should be blocked by plan")
	}
	if chain.Tasks[pdca.PhaseReport].Metadata.Level != pdca.LevelDynamic {
		t.Errorf("level = %s", chain.Tasks[pdca.PhaseReport].Metadata.Level)
	}

	for _, phase := range ChainPhases {
		if got := tr.TaskID("login", phase); got != chain.Tasks[phase].ID {
			t.Errorf("TaskID(%s) = %s, want %s", phase, got, chain.Tasks[phase].ID)
		}
	}
	if f := store.Feature("login"); f.CurrentTaskID != chain.Tasks[pdca.PhaseReport].ID {
		t.Errorf("currentTaskId = %s", f.CurrentTaskID)
	}

	again, err := tr.CreateChain("login", Options{SkipIfExists: true})
	if err != nil || !again.Skipped {
		t.Errorf("second chain = %+v, %v; want skipped", again, err)
	}
}

func TestSaveTaskID_NoDocument(t *testing.T) {
	tr, store := newTracker(t, config.AutomationSemiAuto)
	if err := tr.SaveTaskID("login", pdca.PhasePlan, "x"); err != nil {
		t.Fatalf("SaveTaskID failed: %v", err)
	}
	if st, _ := store.Get(true); st != nil {
		t.Error("SaveTaskID should not create the document")
	}
}

func TestChainStatus(t *testing.T) {
	tr, store := newTracker(t, config.AutomationSemiAuto)
	if cs := tr.ChainStatus("login"); cs.Exists {
		t.Error("unknown feature should not exist")
	}
	_ = store.Update("login", pdca.PhaseDo, nil)

	cs := tr.ChainStatus("login")
	if !cs.Exists || cs.CurrentPhase != pdca.PhaseDo {
		t.Fatalf("ChainStatus = %+v", cs)
	}
	want := map[pdca.Phase]string{
		pdca.PhasePlan:   "completed",
		pdca.PhaseDesign: "completed",
		pdca.PhaseDo:     "in_progress",
		pdca.PhaseCheck:  "pending",
		pdca.PhaseReport: "pending",
	}
	for phase, status := range want {
		if cs.Tasks[phase].Status != status {
			t.Errorf("%s = %s, want %s", phase, cs.Tasks[phase].Status, status)
		}
	}
}

func TestChainStatus_PlanDoCheckWithMatchRate(t *testing.T) {
	tr, store := newTracker(t, config.AutomationSemiAuto)
	steps := []struct {
		phase pdca.Phase
		patch pdca.Patch
	}{
		{pdca.PhasePlan, nil},
		{pdca.PhaseDo, nil},
		{pdca.PhaseCheck, pdca.Patch{"matchRate": 92}},
	}
	for _, st := range steps {
		if err := store.Update("login", st.phase, st.patch); err != nil {
			t.Fatalf("Update(%s) failed: %v", st.phase, err)
		}
	}

	cs := tr.ChainStatus("login")
	if cs.CurrentPhase != pdca.PhaseCheck {
		t.Errorf("CurrentPhase = %s, want check", cs.CurrentPhase)
	}
	if cs.MatchRate == nil || *cs.MatchRate != 92 {
		t.Errorf("MatchRate = %v, want 92", cs.MatchRate)
	}
	want := map[pdca.Phase]string{
		pdca.PhasePlan:   "completed",
		pdca.PhaseDo:     "completed",
		pdca.PhaseCheck:  "in_progress",
		pdca.PhaseAct:    "pending",
		pdca.PhaseReport: "pending",
	}
	for phase, status := range want {
		if cs.Tasks[phase].Status != status {
			t.Errorf("%s = %s, want %s", phase, cs.Tasks[phase].Status, status)
		}
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	tr, store := newTracker(t, config.AutomationSemiAuto)
	_ = store.Update("login", pdca.PhaseCheck, nil)

	rate, iter := 82, 2
	if err := tr.UpdateTaskStatus(pdca.PhaseCheck, "login", StatusUpdate{Completed: true, MatchRate: &rate, IterationCount: &iter}); err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	f := store.Feature("login")
	if f.MatchRate == nil || *f.MatchRate != 82 || f.IterationCount != 2 {
		t.Errorf("feature = %+v", f)
	}
	if f.Timestamps["checkCompleted"] == "" {
		t.Error("checkCompleted not stamped")
	}
}

func TestTriggerNext_CheckBranches(t *testing.T) {
	tr, _ := newTracker(t, config.AutomationSemiAuto)

	hi := tr.TriggerNext("login", pdca.PhaseCheck, NextContext{MatchRate: 95})
	if hi == nil || hi.NextPhase != pdca.PhaseReport || hi.Trigger.Args != "report login" {
		t.Errorf("rate 95 = %+v, want report", hi)
	}
	lo := tr.TriggerNext("login", pdca.PhaseCheck, NextContext{MatchRate: 60})
	if lo == nil || lo.NextPhase != pdca.PhaseAct || lo.Trigger.Args != "iterate login" {
		t.Errorf("rate 60 = %+v, want act", lo)
	}
	capped := tr.TriggerNext("login", pdca.PhaseCheck, NextContext{MatchRate: 60, IterationCount: 5})
	if capped == nil || !capped.MaxIterationsReached {
		t.Errorf("iteration 5 = %+v, want max reached", capped)
	}
}

func TestTriggerNext_Policy(t *testing.T) {
	semi, _ := newTracker(t, config.AutomationSemiAuto)
	if semi.TriggerNext("login", pdca.PhasePlan, NextContext{}) != nil {
		t.Error("semi-auto should not leave plan")
	}

	full, _ := newTracker(t, config.AutomationFullAuto)
	tests := []struct {
		from pdca.Phase
		to   pdca.Phase
		args string
	}{
		{pdca.PhasePlan, pdca.PhaseDesign, "design login"},
		{pdca.PhaseDo, pdca.PhaseCheck, "analyze login"},
		{pdca.PhaseAct, pdca.PhaseCheck, "analyze login"},
	}
	for _, tt := range tests {
		got := full.TriggerNext("login", tt.from, NextContext{})
		if got == nil || got.NextPhase != tt.to || got.Trigger.Args != tt.args {
			t.Errorf("%s = %+v, want %s", tt.from, got, tt.args)
		}
	}
}
