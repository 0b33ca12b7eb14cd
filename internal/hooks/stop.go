package hooks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/pipeline"
	"github.com/bkit-dev/bkit/internal/session"
)

// agentStops maps an agent to its stop handler. Agents win over skills.
var agentStops = map[string]string{
	"gap-detector":  "gap-detector-stop",
	"pdca-iterator": "iterator-stop",
	"code-analyzer": "analysis-stop",
	"qa-monitor":    "qa-stop",
}

var skillStops = map[string]string{
	"pdca":                 "pdca-skill-stop",
	"claude-code-learning": "learning-stop",
	"zero-script-qa":       "qa-stop",
	"development-pipeline": "pipeline-stop",
}

type phaseStop struct {
	name    string
	skill   string
	handler Handler
}

var phaseStops = []phaseStop{
	{"phase1-schema-stop", "phase-1-schema", deliverableStop(1)},
	{"phase2-convention-stop", "phase-2-convention", deliverableStop(2)},
	{"phase3-mockup-stop", "phase-3-mockup", deliverableStop(3)},
	{"phase4-api-stop", "phase-4-api", phase4Stop},
	{"phase5-design-stop", "phase-5-design-system", phase5Stop},
	{"phase6-ui-stop", "phase-6-ui-integration", phase6Stop},
	{"phase7-seo-stop", "phase-7-seo-security", deliverableStop(7)},
	{"phase8-review-stop", "phase-8-review", phase8Stop},
}

func stopHandlerFor(skill, agent string) string {
	if n, ok := agentStops[agent]; ok {
		return n
	}
	if n, ok := skillStops[skill]; ok {
		return n
	}
	for _, p := range phaseStops {
		if p.skill == skill {
			return p.name
		}
	}
	return ""
}

// unifiedStop finds the stop handler for the active agent or skill and
// clears the remembered context afterwards.
func unifiedStop(s *session.Session, in hookio.Input) hookio.Result {
	var last pdca.SessionInfo
	if st, _ := s.Store.Get(false); st != nil {
		last = st.Session
	}
	skill := bare(firstNonEmpty(in.String("skill_name"), in.String("tool_input", "skill"), s.ActiveSkill, last.LastSkill))
	agent := bare(firstNonEmpty(in.String("agent_name"), in.String("tool_input", "subagent_type"), s.ActiveAgent, last.LastAgent))

	res := hookio.Allow("Stop event processed.", EventStop)
	if name := stopHandlerFor(skill, agent); name != "" {
		s.Log.Log("UnifiedStop", "Dispatching stop handler", map[string]any{"handler": name, "skill": skill, "agent": agent})
		res = handlers[name](s, in)
	}

	err := s.Store.Modify(func(st *pdca.Status) bool {
		if st.Session.LastSkill == "" && st.Session.LastAgent == "" {
			return false
		}
		st.Session.LastSkill, st.Session.LastAgent = "", ""
		return true
	})
	if err != nil {
		s.Log.Log("UnifiedStop", "Failed to clear active context", map[string]any{"error": err.Error()})
	}
	return res
}

// agentPre remembers the subagent a Task tool call starts so later stop
// events can find it.
func agentPre(s *session.Session, in hookio.Input) hookio.Result {
	agent := bare(in.String("tool_input", "subagent_type"))
	if agent == "" {
		return hookio.Empty()
	}
	s.ActiveAgent = agent
	err := s.Store.SetSession(func(si *pdca.SessionInfo) {
		si.LastAgent = agent
		si.LastActivity = pdca.Now()
	})
	if err != nil {
		s.Log.Log("AgentPre", "Failed to save active agent", map[string]any{"error": err.Error()})
	}
	return hookio.Empty()
}

// ─── Fixed messages ───

func qaStop(_ *session.Session, _ hookio.Input) hookio.Result {
	return hookio.Allow("QA Session completed.\n\nNext steps:\n"+
		"1. Review logs for any missed issues\n"+
		"2. Document findings in docs/03-analysis/\n"+
		"3. Run /pdca-iterate if issues found need fixing", EventStop)
}

func analysisStop(_ *session.Session, _ hookio.Input) hookio.Result {
	return hookio.Allow("📊 Gap Analysis completed.\n\nNext steps:\n"+
		"1. Save report to docs/03-analysis/\n"+
		"2. If match rate < 70%: Run /pdca-iterate for auto-fix\n"+
		"3. If match rate >= 90%: Proceed to next phase\n"+
		"4. Update design doc if implementation differs intentionally", EventStop)
}

func phase4Stop(_ *session.Session, _ hookio.Input) hookio.Result {
	return hookio.Allow("🎯 API Phase completed.\n\nNext steps:\n"+
		"1. Run Zero Script QA to validate APIs: /zero-script-qa\n"+
		"2. Ensure all endpoints return proper JSON logs\n"+
		"3. Proceed to Phase 5 (Design System) after QA passes", EventStop)
}

func phase8Stop(_ *session.Session, _ hookio.Input) hookio.Result {
	return hookio.Allow("📋 Code Review Phase completed.\n\nReview Summary:\n"+
		"1. Check docs/03-analysis/ for review reports\n"+
		"2. Ensure all refactoring items are addressed\n"+
		"3. Run /pdca-analyze for final gap analysis\n\n"+
		"Next: Phase 9 (Deployment) when review passes", EventStop)
}

// pipelineStop ends the conversation loop after the pipeline guide.
func pipelineStop(_ *session.Session, _ hookio.Input) hookio.Result {
	return hookio.Halt()
}

// deliverableStop reports phase n's deliverable checklist.
func deliverableStop(n int) Handler {
	return func(s *session.Session, _ hookio.Input) hookio.Result {
		msg := pipeline.StopMessage(s.Env.ProjectDir, n, s.Level())
		if msg == "" {
			return hookio.Empty()
		}
		return hookio.Allow(msg, EventStop)
	}
}

// ─── Learning ───

type learningSuggestion struct {
	Action      string `json:"action"`
	Description string `json:"description"`
}

type learningResult struct {
	Status         string               `json:"status"`
	CompletedLevel int                  `json:"completedLevel"`
	NextLevel      *int                 `json:"nextLevel"`
	Suggestions    []learningSuggestion `json:"suggestions"`
}

var digitsRe = regexp.MustCompile(`\d+`)

func learningStop(s *session.Session, in hookio.Input) hookio.Result {
	level := 1
	if m := digitsRe.FindString(in.String("tool_input", "args")); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			level = n
		}
	}
	res := learningResult{Status: "success", CompletedLevel: level}
	if level < 5 {
		next := level + 1
		res.NextLevel = &next
		res.Suggestions = append(res.Suggestions, learningSuggestion{
			Action:      fmt.Sprintf("/claude-code-learning learn %d", next),
			Description: fmt.Sprintf("Continue with Level %d", next),
		})
	}
	res.Suggestions = append(res.Suggestions,
		learningSuggestion{Action: "/claude-code-learning setup", Description: "Generate settings automatically"},
		learningSuggestion{Action: "/pdca plan", Description: "Start development with the PDCA method"},
	)

	if !s.Env.IsGemini() {
		return hookio.RawIndented(res)
	}
	lines := []string{"", "--- Claude Code Learning Complete ---", "", fmt.Sprintf("✅ Level %d complete", level), "", "💡 Suggested next steps:"}
	for i, sg := range res.Suggestions {
		lines = append(lines, fmt.Sprintf("   %d. %s - %s", i+1, sg.Action, sg.Description))
	}
	return hookio.Raw(strings.Join(lines, "\n"))
}

// ─── Phase 5 and 6 ───

type nextPipelinePhase struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Skill       string `json:"skill"`
	Description string `json:"description"`
}

type choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type askUser struct {
	Question string   `json:"question"`
	Options  []choice `json:"options"`
}

type qualityOption struct {
	Agent       string `json:"agent,omitempty"`
	Skill       string `json:"skill,omitempty"`
	Description string `json:"description"`
}

type qualityCheck struct {
	Recommended bool            `json:"recommended"`
	Options     []qualityOption `json:"options"`
}

type phaseCompletion struct {
	Status         string            `json:"status"`
	Phase          int               `json:"phase"`
	PhaseName      string            `json:"phaseName"`
	CompletedItems []string          `json:"completedItems"`
	QualityCheck   *qualityCheck     `json:"qualityCheck,omitempty"`
	NextPhase      nextPipelinePhase `json:"nextPhase"`
	AskUser        askUser           `json:"askUser"`
}

func (c phaseCompletion) text(extra ...string) string {
	lines := []string{"", fmt.Sprintf("--- Phase %d: %s complete ---", c.Phase, c.PhaseName), "", "✅ Completed items:"}
	for _, it := range c.CompletedItems {
		lines = append(lines, "   - "+it)
	}
	lines = append(lines, "")
	lines = append(lines, extra...)
	lines = append(lines,
		fmt.Sprintf("📍 Next: Phase %d - %s", c.NextPhase.Number, c.NextPhase.Name),
		"   "+c.NextPhase.Description,
		"",
		fmt.Sprintf("💡 To continue: /%s", c.NextPhase.Skill),
	)
	return strings.Join(lines, "\n")
}

func hasNumber(list []any, n int) bool {
	for _, v := range list {
		switch x := v.(type) {
		case float64:
			if int(x) == n {
				return true
			}
		case int:
			if x == n {
				return true
			}
		}
	}
	return false
}

func phase5Stop(s *session.Session, _ hookio.Input) hookio.Result {
	c := phaseCompletion{
		Status:    "success",
		Phase:     5,
		PhaseName: "Design System",
		CompletedItems: []string{
			"UI component library built",
			"Design tokens defined (colors, spacing, typography)",
			"Components documented",
			"Storybook configured (optional)",
		},
		NextPhase: nextPipelinePhase{Number: 6, Name: "UI Integration", Skill: "phase-6-ui-integration", Description: "Implement the UI and connect the APIs"},
		AskUser: askUser{
			Question: "The design system is complete. Proceed to UI Integration?",
			Options: []choice{
				{Label: "Yes, start Phase 6", Value: "proceed"},
				{Label: "More component work", Value: "continue"},
				{Label: "Review first", Value: "review"},
			},
		},
	}

	err := s.Memory.UpdateObject("pipelineStatus", func(ps map[string]any) {
		ps["currentPhase"] = 6
		done, _ := ps["completedPhases"].([]any)
		if !hasNumber(done, 5) {
			done = append(done, 5)
		}
		ps["completedPhases"] = done
	})
	if err != nil {
		s.Log.Log("Phase5Stop", "Failed to update memory", map[string]any{"error": err.Error()})
	}

	if s.Env.IsGemini() {
		return hookio.Raw(c.text())
	}
	return hookio.RawIndented(c)
}

func phase6Stop(s *session.Session, _ hookio.Input) hookio.Result {
	c := phaseCompletion{
		Status:    "success",
		Phase:     6,
		PhaseName: "UI Integration",
		CompletedItems: []string{
			"UI components implemented",
			"API integration complete",
			"State management applied",
			"Error handling implemented",
			"Loading states handled",
		},
		QualityCheck: &qualityCheck{
			Recommended: true,
			Options: []qualityOption{
				{Agent: "gap-detector", Description: "Design-implementation gap analysis"},
				{Skill: "zero-script-qa", Description: "Log-based QA with Docker"},
			},
		},
		NextPhase: nextPipelinePhase{Number: 7, Name: "SEO/Security", Skill: "phase-7-seo-security", Description: "SEO optimization and security review"},
		AskUser: askUser{
			Question: "UI Integration is complete. What would you like to do next?",
			Options: []choice{
				{Label: "Run gap analysis (recommended)", Value: "gap-analysis"},
				{Label: "Run Zero Script QA", Value: "zero-script-qa"},
				{Label: "Proceed to Phase 7 SEO/Security", Value: "proceed"},
				{Label: "More UI work", Value: "continue"},
			},
		},
	}

	err := s.Memory.UpdateObject("pipelineStatus", func(ps map[string]any) {
		ps["phase6Completed"] = true
		ps["awaitingQualityCheck"] = true
		if _, ok := ps["completedPhases"].([]any); !ok {
			ps["completedPhases"] = []any{}
		}
	})
	if err != nil {
		s.Log.Log("Phase6Stop", "Failed to update memory", map[string]any{"error": err.Error()})
	}

	if s.Env.IsGemini() {
		extra := []string{"🔍 Recommended quality checks:"}
		for _, o := range c.QualityCheck.Options {
			extra = append(extra, fmt.Sprintf("   - %s: %s", firstNonEmpty(o.Agent, o.Skill), o.Description))
		}
		extra = append(extra, "",
			"💡 Recommended order:",
			"   1. Confirm design-implementation alignment with gap-detector",
			"   2. Match Rate >= 90%: proceed to Phase 7",
			"   3. Match Rate < 90%: run /pdca-iterate",
			"")
		return hookio.Raw(c.text(extra...))
	}
	return hookio.RawIndented(c)
}
