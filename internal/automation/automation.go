// Package automation decides how far bkit may drive the PDCA cycle on its
// own. The level comes from BKIT_PDCA_AUTOMATION or pdca.automationLevel:
//
//	manual     never advance automatically
//	semi-auto  advance only out of check
//	full-auto  advance everywhere except review checkpoints
package automation

import (
	"fmt"
	"strings"

	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
)

// Policy is the resolved automation configuration.
type Policy struct {
	Level              string
	ReviewCheckpoints  []string
	MatchRateThreshold int
	MaxIterations      int
	AutoStartThreshold int
}

// FromConfig builds a Policy from typed settings.
func FromConfig(b config.Bkit) Policy {
	return Policy{
		Level:              b.PDCA.AutomationLevel,
		ReviewCheckpoints:  b.PDCA.ReviewCheckpoints,
		MatchRateThreshold: b.PDCA.MatchRateThreshold,
		MaxIterations:      b.PDCA.MaxIterations,
		AutoStartThreshold: b.PDCA.AutoStartThreshold,
	}
}

// Default is the policy with every setting at its default.
func Default() Policy {
	return FromConfig(config.New(nil).Typed())
}

// IsFullAuto reports whether the policy runs in full-auto.
func (p Policy) IsFullAuto() bool { return p.Level == config.AutomationFullAuto }

// ShouldAutoAdvance reports whether leaving phase may happen without asking.
func (p Policy) ShouldAutoAdvance(phase pdca.Phase) bool {
	switch p.Level {
	case config.AutomationManual:
		return false
	case config.AutomationFullAuto:
		for _, cp := range p.ReviewCheckpoints {
			if cp == string(phase) {
				return false
			}
		}
		return true
	default:
		return phase == pdca.PhaseCheck
	}
}

// Trigger is a skill invocation the host should run next.
type Trigger struct {
	Skill string `json:"skill"`
	Args  string `json:"args"`
}

// String renders the trigger as a slash command.
func (t *Trigger) String() string {
	if t == nil {
		return ""
	}
	return "/" + t.Skill + " " + t.Args
}

// TriggerContext is the input to GenerateAutoTrigger.
type TriggerContext struct {
	Feature   string
	MatchRate int
}

// GenerateAutoTrigger returns the pdca command that follows phase, or nil
// when advancing is not allowed or there is no feature.
func (p Policy) GenerateAutoTrigger(phase pdca.Phase, ctx TriggerContext) *Trigger {
	if ctx.Feature == "" || !p.ShouldAutoAdvance(phase) {
		return nil
	}
	var action string
	switch phase {
	case pdca.PhasePlan:
		action = "design"
	case pdca.PhaseDesign:
		action = "do"
	case pdca.PhaseDo, pdca.PhaseAct:
		action = "analyze"
	case pdca.PhaseCheck:
		action = "iterate"
		if ctx.MatchRate >= p.MatchRateThreshold {
			action = "report"
		}
	default:
		return nil
	}
	return &Trigger{Skill: "pdca", Args: action + " " + ctx.Feature}
}

// NextAfter returns the phase that follows phase in an automatic advance.
// check branches on the match rate; act loops back to check.
func (p Policy) NextAfter(phase pdca.Phase, matchRate int) pdca.Phase {
	switch phase {
	case pdca.PhasePlan:
		return pdca.PhaseDesign
	case pdca.PhaseDesign:
		return pdca.PhaseDo
	case pdca.PhaseDo:
		return pdca.PhaseCheck
	case pdca.PhaseCheck:
		if matchRate >= p.MatchRateThreshold {
			return pdca.PhaseReport
		}
		return pdca.PhaseAct
	case pdca.PhaseAct:
		return pdca.PhaseCheck
	}
	return ""
}

// Advance is the outcome of AutoAdvance.
type Advance struct {
	Feature string     `json:"feature"`
	Phase   pdca.Phase `json:"phase"`
	Trigger *Trigger   `json:"trigger"`
}

// AutoAdvance moves feature past phase when policy allows it, recording
// previousPhase and autoAdvanced. Returns nil when nothing moved.
func (p Policy) AutoAdvance(store *pdca.Store, feature string, phase pdca.Phase, matchRate int) (*Advance, error) {
	if feature == "" || !p.ShouldAutoAdvance(phase) {
		return nil, nil
	}
	next := p.NextAfter(phase, matchRate)
	if next == "" {
		return nil, nil
	}
	if err := store.Update(feature, next, pdca.Patch{
		"previousPhase": string(phase),
		"autoAdvanced":  true,
	}); err != nil {
		return nil, fmt.Errorf("auto-advancing %s: %w", feature, err)
	}
	return &Advance{
		Feature: feature,
		Phase:   next,
		Trigger: p.GenerateAutoTrigger(phase, TriggerContext{Feature: feature, MatchRate: matchRate}),
	}, nil
}

// ShouldAutoStart reports whether a change of lines lines to an untracked
// feature is large enough to open a PDCA cycle.
func (p Policy) ShouldAutoStart(status *pdca.Status, feature string, lines int) bool {
	if status != nil {
		if _, ok := status.Features[feature]; ok {
			return false
		}
	}
	return lines >= p.AutoStartThreshold
}

// HookContext summarizes the runtime for hook output.
type HookContext struct {
	Platform        platform.Name `json:"platform"`
	ProjectDir      string        `json:"projectDir"`
	PluginRoot      string        `json:"pluginRoot"`
	AutomationLevel string        `json:"automationLevel"`
	IsFullAuto      bool          `json:"isFullAuto"`
}

// HookContext describes env under this policy.
func (p Policy) HookContext(env platform.Env) HookContext {
	return HookContext{
		Platform:        env.Platform,
		ProjectDir:      env.ProjectDir,
		PluginRoot:      env.PluginRoot,
		AutomationLevel: p.Level,
		IsFullAuto:      p.IsFullAuto(),
	}
}

// ─── Prompt formatting ───

// UserPrompt is plain guidance shown to the user.
type UserPrompt struct {
	Message     string
	Feature     string
	Phase       string
	Suggestions []string
}

// EmitUserPrompt renders prompt as text.
func EmitUserPrompt(prompt UserPrompt) string {
	var b strings.Builder
	if prompt.Message != "" {
		b.WriteString(prompt.Message + "\n")
	}
	if prompt.Feature != "" && prompt.Phase != "" {
		fmt.Fprintf(&b, "\n📍 Current: %s (%s)\n", prompt.Feature, prompt.Phase)
	}
	if len(prompt.Suggestions) > 0 {
		b.WriteString("\n💡 Suggestions:\n")
		for i, s := range prompt.Suggestions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}
	return b.String()
}

// Option is one AskUserQuestion choice.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Question is one AskUserQuestion entry.
type Question struct {
	Question    string   `json:"question"`
	Header      string   `json:"header"`
	Options     []Option `json:"options"`
	MultiSelect bool     `json:"multiSelect"`
}

// AskUserQuestion is the payload the host renders as a choice dialog.
type AskUserQuestion struct {
	Questions []Question `json:"questions"`
}

// DefaultOptions are used when a question has none.
var DefaultOptions = []Option{
	{Label: "Continue", Description: "Proceed with current task"},
	{Label: "Skip", Description: "Skip this step"},
}

// FormatAskUserQuestion fills defaults into q and wraps it.
func FormatAskUserQuestion(q Question) AskUserQuestion {
	if q.Question == "" {
		q.Question = "How would you like to proceed?"
	}
	if q.Header == "" {
		q.Header = "Action"
	}
	if len(q.Options) == 0 {
		q.Options = DefaultOptions
	}
	return AskUserQuestion{Questions: []Question{q}}
}
