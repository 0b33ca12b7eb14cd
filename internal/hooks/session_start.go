package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/intent"
	"github.com/bkit-dev/bkit/internal/memory"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/session"
)

// getenv is a package-level variable for testability.
var getenv = os.Getenv

var phaseDisplay = map[pdca.Phase]string{
	pdca.PhasePlan:      "Plan",
	pdca.PhaseDesign:    "Design",
	pdca.PhaseDo:        "Implementation",
	pdca.PhaseCheck:     "Verification",
	pdca.PhaseAct:       "Improvement",
	pdca.PhaseCompleted: "Completed",
}

func displayPhase(p pdca.Phase) string {
	if d, ok := phaseDisplay[p]; ok {
		return d
	}
	return string(p)
}

type onboarding struct {
	existing  bool
	feature   string
	phase     pdca.Phase
	matchRate *int
	prompt    string
}

// sessionStart prepares the project for a new host session and returns
// the onboarding context.
func sessionStart(s *session.Session, _ hookio.Input) hookio.Result {
	if err := s.Store.InitIfNotExists(); err != nil {
		s.Log.Log("SessionStart", "Failed to initialize status", map[string]any{"error": err.Error()})
	}
	now := pdca.Now()
	level := s.Level()

	err := s.Store.SetSession(func(si *pdca.SessionInfo) {
		si.StartedAt = now
		si.LastActivity = now
		si.LastSkill = ""
		si.LastAgent = ""
	})
	if err != nil {
		s.Log.Log("SessionStart", "Failed to record session", map[string]any{"error": err.Error()})
	}

	s.Context.ClearSession()
	s.Set("sessionId", s.ID)
	s.Set("sessionStartedAt", now)
	s.Set("platform", string(s.Env.Platform))
	s.Set("level", string(level))
	if p := s.Store.Primary(); p != "" {
		s.Set("primaryFeature", p)
	}

	count, err := s.Memory.RecordSession(memory.Session{
		ID:        s.ID,
		StartedAt: now,
		Platform:  string(s.Env.Platform),
		Level:     string(level),
	})
	if err != nil {
		s.Log.Log("SessionStart", "Failed to update memory", map[string]any{"error": err.Error()})
	} else {
		s.Log.Log("SessionStart", "Memory store initialized", map[string]any{"sessionCount": count})
	}

	if j, err := s.Journal(); err == nil {
		if err := j.CreateSession(s.ID, s.Env.ProjectDir, string(s.Env.Platform)); err != nil {
			s.Log.Log("SessionStart", "Failed to open journal session", map[string]any{"error": err.Error()})
		}
	}

	if imports := s.Settings.StartupImports; len(imports) > 0 {
		content, errs := s.Resolver.Resolve(imports, filepath.Join(s.Env.ProjectDir, "bkit.config.json"))
		s.Log.Log("SessionStart", "Startup imports loaded", map[string]any{
			"importCount": len(imports), "contentLength": len(content), "errors": errs,
		})
	}

	if forks := s.Skills.ForkEnabled(); len(forks) > 0 {
		s.Set("forkEnabledSkills", forks)
		s.Log.Log("SessionStart", "Fork-enabled skills detected", map[string]any{"skills": forks})
	}

	exportEnv(s, level)

	ob := buildOnboarding(s)
	if s.Env.IsGemini() {
		return hookio.Raw(geminiBanner(ob))
	}
	return claudeStartup(ob)
}

// exportEnv appends BKIT_* variables to the host's env file when the host
// provides one.
func exportEnv(s *session.Session, level pdca.Level) {
	path := firstNonEmpty(getenv("CLAUDE_ENV_FILE"), getenv("GEMINI_ENV_FILE"))
	if path == "" {
		return
	}
	phase := 1
	if st, _ := s.Store.Get(false); st != nil && st.Pipeline.CurrentPhase > 0 {
		phase = st.Pipeline.CurrentPhase
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.Log.Log("SessionStart", "Failed to open env file", map[string]any{"error": err.Error()})
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "export BKIT_LEVEL=%s\nexport BKIT_PDCA_PHASE=%d\nexport BKIT_PLATFORM=%s\n", level, phase, s.Env.Platform)
}

func askJSON(questions ...automation.Question) string {
	data, err := json.Marshal(automation.AskUserQuestion{Questions: questions})
	if err != nil {
		return ""
	}
	return string(data)
}

func buildOnboarding(s *session.Session) onboarding {
	st, _ := s.Store.Get(false)
	if st != nil && len(st.ActiveFeatures) > 0 {
		primary := string(st.PrimaryFeature)
		if primary == "" {
			primary = st.ActiveFeatures[0]
		}
		ob := onboarding{existing: true, feature: primary, phase: pdca.PhasePlan}
		if fs := st.Features[primary]; fs != nil {
			if fs.Phase != "" {
				ob.phase = fs.Phase
			}
			ob.matchRate = fs.MatchRate
		}
		current := fmt.Sprintf("%q - %s", primary, displayPhase(ob.phase))
		if ob.matchRate != nil {
			current += fmt.Sprintf(" (%d%%)", *ob.matchRate)
		}
		ob.prompt = askJSON(automation.Question{
			Question: "Previous work detected. How would you like to proceed?\nCurrent: " + current,
			Header:   "Resume",
			Options: []automation.Option{
				{Label: "Continue " + primary, Description: fmt.Sprintf("Resume %s phase", displayPhase(ob.phase))},
				{Label: "Start new task", Description: "Develop a different feature"},
				{Label: "Check status", Description: "View PDCA status (/pdca status)"},
			},
		})
		return ob
	}
	return onboarding{prompt: askJSON(automation.Question{
		Question: "How can I help you?",
		Header:   "Help Type",
		Options: []automation.Option{
			{Label: "Learn bkit", Description: "Introduction and 9-phase pipeline"},
			{Label: "Learn Claude Code", Description: "Settings and usage"},
			{Label: "Start new project", Description: "Project initialization"},
			{Label: "Start freely", Description: "Proceed without guide"},
		},
	})}
}

var agentActions = map[intent.Intent]string{
	intent.GapDetector:     "Run Gap analysis",
	intent.PdcaIterator:    "Auto-improvement iteration",
	intent.CodeAnalyzer:    "Code quality analysis",
	intent.ReportGenerator: "Generate completion report",
	intent.StarterGuide:    "Beginner guide",
}

// triggerTable renders the implicit trigger keywords, one per language.
func triggerTable() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 🎯 Auto-Trigger Keywords (%d Languages Supported)\n\n", len(intent.Languages))
	b.WriteString("### Agent Triggers\n| Keywords | Agent | Action |\n|----------|-------|--------|\n")
	for _, a := range intent.Agents {
		fmt.Fprintf(&b, "| %s | bkit:%s | %s |\n", strings.Join(firstKeywords(a), ", "), a, agentActions[a])
	}
	b.WriteString("\n### Skill Triggers (Auto-detection)\n| Keywords | Skill |\n|----------|-------|\n")
	for _, sk := range intent.Skills {
		fmt.Fprintf(&b, "| %s | %s |\n", strings.Join(firstKeywords(sk), ", "), sk)
	}
	b.WriteString("\n💡 Use natural language and the appropriate tool will be activated automatically.\n")
	return b.String()
}

func firstKeywords(in intent.Intent) []string {
	seen := map[string]bool{}
	var out []string
	for _, lang := range intent.Languages {
		kw := intent.Keywords(lang, in)
		if len(kw) == 0 || seen[kw[0]] {
			continue
		}
		seen[kw[0]] = true
		out = append(out, kw[0])
	}
	return out
}

func claudeStartup(ob onboarding) hookio.Result {
	var b strings.Builder
	b.WriteString("# bkit Vibecoding Kit - Session Startup\n\n")
	if ob.existing {
		b.WriteString("## 🔄 Previous Work Detected\n\n")
		fmt.Fprintf(&b, "- **Feature**: %s\n", ob.feature)
		fmt.Fprintf(&b, "- **Current Phase**: %s\n", ob.phase)
		if ob.matchRate != nil {
			fmt.Fprintf(&b, "- **Match Rate**: %d%%\n", *ob.matchRate)
		}
		b.WriteString("\n### 🚨 MANDATORY: Call AskUserQuestion on user's first message\n\n")
		b.WriteString(ob.prompt + "\n\n")
		b.WriteString("### Actions by selection:\n")
		fmt.Fprintf(&b, "- **Continue %s** → Run /pdca status then guide to next phase\n", ob.feature)
		b.WriteString("- **Start new task** → Ask for new feature name then run /pdca plan\n")
		b.WriteString("- **Check status** → Run /pdca status\n\n")
	} else {
		b.WriteString("## 🚨 MANDATORY: Session Start Action\n\n")
		b.WriteString("**AskUserQuestion tool** call required on user's first message.\n\n")
		b.WriteString(ob.prompt + "\n\n")
		b.WriteString("### Actions by selection:\n")
		b.WriteString("- **Learn bkit** → Run /development-pipeline\n")
		b.WriteString("- **Learn Claude Code** → Run /claude-code-learning\n")
		b.WriteString("- **Start new project** → Select level then run /starter, /dynamic, or /enterprise\n")
		b.WriteString("- **Start freely** → General conversation mode\n\n")
	}
	b.WriteString("## PDCA Core Rules (Always Apply)\n")
	b.WriteString("- New feature request → Check/create Plan/Design documents first\n")
	b.WriteString("- After implementation → Suggest Gap analysis\n")
	b.WriteString("- Gap Analysis < 90% → Auto-improvement with pdca-iterator\n")
	b.WriteString("- Gap Analysis >= 90% → Completion report with report-generator\n\n")
	b.WriteString(triggerTable())
	b.WriteString("\n## PDCA Phase Recommendations\n")
	b.WriteString("| Current Status | Recommended Skill |\n|----------------|-------------------|\n")
	b.WriteString("| No PDCA | /pdca plan {feature} |\n")
	b.WriteString("| Plan completed | /pdca design {feature} |\n")
	b.WriteString("| Design completed | /pdca do {feature} |\n")
	b.WriteString("| Do completed | /pdca analyze {feature} |\n")
	b.WriteString("| Check < 90% | /pdca iterate {feature} |\n")
	b.WriteString("| Check ≥ 90% | /pdca report {feature} |\n\n")
	b.WriteString("💡 Important: AI Agent is not perfect. Always verify important decisions.")

	existing := ob.existing
	out := hookOutput{
		SystemMessage: "bkit Vibecoding Kit activated (Claude Code)",
		HookSpecificOutput: hookSpecificOutput{
			HookEventName:     EventSessionStart,
			OnboardingType:    "new_user",
			HasExistingWork:   &existing,
			MatchRate:         ob.matchRate,
			AdditionalContext: b.String(),
		},
	}
	if ob.existing {
		phase := string(ob.phase)
		out.HookSpecificOutput.OnboardingType = "resume"
		out.HookSpecificOutput.PrimaryFeature = &ob.feature
		out.HookSpecificOutput.CurrentPhase = &phase
	}
	return out.result()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	tipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// geminiBanner is the plain-text startup screen for Gemini CLI.
func geminiBanner(ob onboarding) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🤖 bkit Vibecoding Kit (Gemini Edition)") + "\n")
	b.WriteString(strings.Repeat("=", 52) + "\n")
	b.WriteString("PDCA Cycle & AI-Native Development Environment\n\n")
	if ob.existing {
		feature := hookio.XMLSafe(ob.feature)
		phase := hookio.XMLSafe(string(ob.phase))
		if ob.matchRate != nil {
			phase += fmt.Sprintf(" (%d%%)", *ob.matchRate)
		}
		b.WriteString(sectionStyle.Render("[📋 Previous Work Detected]") + "\n")
		fmt.Fprintf(&b, "• Feature: %s\n• Phase: %s\n\n", boldStyle.Render(feature), phase)
		b.WriteString(sectionStyle.Render("[Recommended Commands]") + "\n")
		fmt.Fprintf(&b, "1. 🔄 Continue previous work: %s\n", boldStyle.Render("/pdca status"))
		fmt.Fprintf(&b, "2. ✅ Run Gap analysis: %s\n", boldStyle.Render("/pdca analyze "+feature))
		fmt.Fprintf(&b, "3. 🆕 Start new task: %s\n", boldStyle.Render("/pdca plan [feature-name]"))
	} else {
		b.WriteString(sectionStyle.Render("[Recommended Starting Commands]") + "\n")
		fmt.Fprintf(&b, "1. 📚 Learn bkit (9-phase pipeline): %s\n", boldStyle.Render("/development-pipeline"))
		fmt.Fprintf(&b, "2. 🤖 Learn Claude Code (settings guide): %s\n", boldStyle.Render("/claude-code-learning"))
		fmt.Fprintf(&b, "3. 🆕 Start new project (initialization): %s\n", boldStyle.Render("/starter"))
	}
	b.WriteString("\n" + tipStyle.Render(`💡 Tip: Use natural language like "verify", "improve" and the appropriate Agent will run automatically.`) + "\n")
	b.WriteString(tipStyle.Render(fmt.Sprintf("   (%d languages supported)", len(intent.Languages))))
	return b.String()
}
