package automation

import (
	"strings"
	"testing"

	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/pdca"
)

func policy(level string) Policy {
	p := Default()
	p.Level = level
	return p
}

// --- ShouldAutoAdvance ---

func TestShouldAutoAdvance(t *testing.T) {
	tests := []struct {
		level string
		phase pdca.Phase
		want  bool
	}{
		{config.AutomationManual, pdca.PhaseCheck, false},
		{config.AutomationSemiAuto, pdca.PhaseCheck, true},
		{config.AutomationSemiAuto, pdca.PhasePlan, false},
		{config.AutomationFullAuto, pdca.PhasePlan, true},
		{config.AutomationFullAuto, pdca.PhaseDesign, false}, // review checkpoint
	}
	for _, tt := range tests {
		if got := policy(tt.level).ShouldAutoAdvance(tt.phase); got != tt.want {
			t.Errorf("%s/%s = %v, want %v", tt.level, tt.phase, got, tt.want)
		}
	}
}

// --- GenerateAutoTrigger ---

func TestGenerateAutoTrigger(t *testing.T) {
	p := policy(config.AutomationFullAuto)
	p.ReviewCheckpoints = nil

	tests := []struct {
		phase pdca.Phase
		rate  int
		want  string
	}{
		{pdca.PhasePlan, 0, "design login"},
		{pdca.PhaseDesign, 0, "do login"},
		{pdca.PhaseDo, 0, "analyze login"},
		{pdca.PhaseCheck, 95, "report login"},
		{pdca.PhaseCheck, 60, "iterate login"},
		{pdca.PhaseAct, 0, "analyze login"},
	}
	for _, tt := range tests {
		tr := p.GenerateAutoTrigger(tt.phase, TriggerContext{Feature: "login", MatchRate: tt.rate})
		if tr == nil || tr.Skill != "pdca" || tr.Args != tt.want {
			t.Errorf("%s@%d = %+v, want %s", tt.phase, tt.rate, tr, tt.want)
		}
	}

	if p.GenerateAutoTrigger(pdca.PhaseReport, TriggerContext{Feature: "login"}) != nil {
		t.Error("report has no trigger")
	}
	if p.GenerateAutoTrigger(pdca.PhasePlan, TriggerContext{}) != nil {
		t.Error("empty feature has no trigger")
	}
	if policy(config.AutomationManual).GenerateAutoTrigger(pdca.PhaseCheck, TriggerContext{Feature: "x"}) != nil {
		t.Error("manual never triggers")
	}
}

// --- AutoAdvance ---

func TestAutoAdvance_CheckBelowThresholdGoesToAct(t *testing.T) {
	store := pdca.NewStore(t.TempDir())
	_ = store.Update("login", pdca.PhaseCheck, nil)

	adv, err := policy(config.AutomationSemiAuto).AutoAdvance(store, "login", pdca.PhaseCheck, 70)
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if adv == nil || adv.Phase != pdca.PhaseAct {
		t.Fatalf("advance = %+v, want act", adv)
	}
	if adv.Trigger.String() != "/pdca iterate login" {
		t.Errorf("trigger = %s", adv.Trigger)
	}

	f := store.Feature("login")
	if f.Phase != pdca.PhaseAct || f.PreviousPhase != pdca.PhaseCheck || !f.AutoAdvanced {
		t.Errorf("feature = %+v", f)
	}
}

func TestAutoAdvance_Disallowed(t *testing.T) {
	store := pdca.NewStore(t.TempDir())
	adv, err := policy(config.AutomationSemiAuto).AutoAdvance(store, "login", pdca.PhaseDo, 0)
	if err != nil || adv != nil {
		t.Errorf("AutoAdvance = %+v, %v; want nil, nil", adv, err)
	}
}

// --- ShouldAutoStart ---

func TestShouldAutoStart(t *testing.T) {
	p := Default()
	st := pdca.NewStatus()
	st.Features["known"] = &pdca.FeatureState{Phase: pdca.PhaseDo}

	if p.ShouldAutoStart(st, "known", 500) {
		t.Error("tracked feature should not auto-start")
	}
	if !p.ShouldAutoStart(st, "fresh", 100) {
		t.Error("100 lines should auto-start")
	}
	if p.ShouldAutoStart(nil, "fresh", 99) {
		t.Error("99 lines should not auto-start")
	}
}

// --- Formatting ---

func TestEmitUserPrompt(t *testing.T) {
	out := EmitUserPrompt(UserPrompt{
		Message:     "Done",
		Feature:     "login",
		Phase:       "check",
		Suggestions: []string{"a", "b"},
	})
	for _, want := range []string{"Done\n", "📍 Current: login (check)", "  1. a\n", "  2. b\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if EmitUserPrompt(UserPrompt{}) != "" {
		t.Error("empty prompt should render empty")
	}
}

func TestFormatAskUserQuestion_Defaults(t *testing.T) {
	q := FormatAskUserQuestion(Question{})
	if len(q.Questions) != 1 {
		t.Fatalf("questions = %d", len(q.Questions))
	}
	got := q.Questions[0]
	if got.Header != "Action" || got.Question == "" || len(got.Options) != 2 || got.Options[0].Label != "Continue" {
		t.Errorf("question = %+v", got)
	}
}
