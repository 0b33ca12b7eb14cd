package hooks

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bkit-dev/bkit/internal/fork"
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/session"
	"github.com/bkit-dev/bkit/internal/skills"
	"github.com/bkit-dev/bkit/internal/task"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// pdcaPostWrite points at gap analysis once a feature with a design doc
// has been written to, and marks the feature ready for check.
func pdcaPostWrite(s *session.Session, in hookio.Input) hookio.Result {
	path := in.FilePath()
	if path == "" || !pdca.IsSourceFile(path, pdca.RulesFrom(s.Settings)) {
		return hookio.Empty()
	}
	feature := s.Store.ExtractFeature(pdca.FeatureContext{FilePath: path})
	if feature == "" || pdca.FindDesignDoc(s.Env.ProjectDir, feature) == "" {
		return hookio.Empty()
	}

	err := s.Store.Modify(func(st *pdca.Status) bool {
		fs := st.Features[feature]
		if fs == nil {
			return false
		}
		fs.LastFile = rel(s, path)
		if fs.Extra == nil {
			fs.Extra = map[string]any{}
		}
		fs.Extra["checkReady"] = true
		return true
	})
	if err != nil {
		s.Log.Log("PostWrite", "Failed to record write", map[string]any{"error": err.Error(), "feature": feature})
	}

	msg := fmt.Sprintf("Write completed: %s\n\nWhen implementation is finished, run /pdca-analyze %s to verify design-implementation alignment.\n\n%s",
		rel(s, path), feature, task.TaskGuidance(pdca.PhaseDo, feature, pdca.PhaseDesign))
	return hookio.Allow(msg, EventPostToolUse)
}

var (
	colorRes = []*regexp.Regexp{
		regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b`),
		regexp.MustCompile(`(?i)rgb\s*\(`),
		regexp.MustCompile(`(?i)hsl\s*\(`),
	}
	pxRe       = regexp.MustCompile(`\d+px`)
	fontSizeRe = regexp.MustCompile(`font-size:\s*\d+`)
)

// phase5DesignPost flags hardcoded design values in UI files.
func phase5DesignPost(s *session.Session, in hookio.Input) hookio.Result {
	if s.ActiveSkill != "phase-5-design-system" || !pdca.IsUIFile(in.FilePath()) {
		return hookio.Empty()
	}
	content := in.Content()
	var warnings []string
	for _, re := range colorRes {
		if re.MatchString(content) {
			warnings = append(warnings, "Hardcoded color detected. Consider using design tokens (e.g., colors.primary).")
			break
		}
	}
	if pxRe.MatchString(content) && !strings.Contains(content, "className") {
		warnings = append(warnings, "Hardcoded px values detected. Consider using spacing tokens.")
	}
	if fontSizeRe.MatchString(content) {
		warnings = append(warnings, "Hardcoded font-size detected. Consider using typography tokens.")
	}
	if len(warnings) == 0 {
		return hookio.Empty()
	}
	return hookio.Allow("Design System Check: "+strings.Join(warnings, " | "), EventPostToolUse)
}

func phase6UIPost(s *session.Session, in hookio.Input) hookio.Result {
	if s.ActiveSkill != "phase-6-ui-integration" {
		return hookio.Empty()
	}
	path := filepath.ToSlash(in.FilePath())
	containsAny := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(path, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case pdca.IsUIFile(path) || containsAny("/pages/", "/components/", "/features/"):
		return hookio.Allow(`🔍 UI Layer Check:
- Components should use hooks, not direct fetch
- Follow: Components → hooks → services → apiClient
- No business logic in UI components`, EventPostToolUse)
	case containsAny("/services/", "/api/", "/lib/"):
		return hookio.Allow(`🔍 Service Layer Check:
- Services should only call apiClient
- No direct DOM manipulation
- Keep domain logic isolated`, EventPostToolUse)
	}
	return hookio.Empty()
}

var criticalRe = regexp.MustCompile(`(?i)🔴 Critical|Critical.*[1-9]`)

func qaMonitorPost(_ *session.Session, in hookio.Input) hookio.Result {
	path := filepath.ToSlash(in.FilePath())
	if !strings.Contains(path, "docs/03-analysis/") || !strings.Contains(strings.ToLower(path), "qa") {
		return hookio.Empty()
	}
	if criticalRe.MatchString(in.Content()) {
		return hookio.Allow(`🚨 Critical issues detected in QA report!
Recommended actions:
1. Fix critical issues immediately
2. Run /pdca-iterate for auto-fix
3. Re-run Zero Script QA after fixes`, EventPostToolUse)
	}
	return hookio.Allow(`✅ QA Report saved. No critical issues detected.
Next steps:
1. Review warning items if any
2. Proceed to next phase when ready`, EventPostToolUse)
}

func gapDetectorPost(_ *session.Session, in hookio.Input) hookio.Result {
	path := in.FilePath()
	if !strings.HasSuffix(path, ".analysis.md") && !strings.HasSuffix(path, "-analysis.md") {
		return hookio.Empty()
	}
	return hookio.Allow("Gap Analysis completed.\nIf match rate is below 70%, run /pdca-iterate to automatically improve the implementation.", EventPostToolUse)
}

// ─── Skill ───

type skillPostOutput struct {
	SkillCompleted        string  `json:"skillCompleted"`
	Timestamp             string  `json:"timestamp"`
	NextSkill             *string `json:"nextSkill"`
	NextSkillMessage      *string `json:"nextSkillMessage"`
	SuggestedAgent        *string `json:"suggestedAgent"`
	SuggestedAgentMessage *string `json:"suggestedAgentMessage"`
	Status                string  `json:"status"`
}

// skillArgs splits "plan login" into the action and the feature.
func skillArgs(args string) (action, feature string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// skillPost remembers the finished skill and suggests what comes next.
func skillPost(s *session.Session, in hookio.Input) hookio.Result {
	skill := in.First([]string{"tool_input", "skill"}, []string{"tool_input", "name"})
	if skill == "" {
		return hookio.Raw(map[string]string{"status": "skip", "reason": "no skill name"})
	}
	_, feature := skillArgs(in.String("tool_input", "args"))

	s.ActiveSkill = skill
	err := s.Store.SetSession(func(si *pdca.SessionInfo) {
		si.LastSkill = skill
		si.LastActivity = pdca.Now()
	})
	if err != nil {
		s.Log.Log("SkillPost", "Failed to save active skill", map[string]any{"error": err.Error()})
	}

	post := s.Skills.Post(skill)
	if cfg := s.Skills.Config(skill); cfg != nil && cfg.PdcaPhase != "" && feature != "" {
		phase := pdca.Phase(cfg.PdcaPhase)
		switch {
		case !pdca.IsKnownPhase(phase):
		case cfg.IsFork():
			updateInFork(s, cfg, skill, feature, phase)
		default:
			if err := s.Store.Update(feature, phase, pdca.Patch{"lastSkill": skill}); err != nil {
				s.Log.Log("SkillPost", "Failed to update status", map[string]any{"error": err.Error()})
			}
		}
	}

	if s.Env.IsGemini() {
		lines := []string{fmt.Sprintf("--- Skill Post-execution: %s ---", skill)}
		if post.NextSkill != nil {
			lines = append(lines, fmt.Sprintf("Next skill: /%s", post.NextSkill.Name), post.NextSkill.Message)
		}
		if post.SuggestedAgent != "" {
			lines = append(lines, fmt.Sprintf("Suggested agent: %s", post.SuggestedAgent), post.Message)
		}
		if post.Empty() {
			lines = append(lines, "Skill complete")
		}
		return hookio.Raw(strings.Join(lines, "\n"))
	}

	out := skillPostOutput{
		SkillCompleted: skill,
		Timestamp:      timeNow().UTC().Format(time.RFC3339),
		Status:         "success",
	}
	if post.NextSkill != nil {
		out.NextSkill = &post.NextSkill.Name
		out.NextSkillMessage = &post.NextSkill.Message
	}
	if post.SuggestedAgent != "" {
		out.SuggestedAgent = &post.SuggestedAgent
		out.SuggestedAgentMessage = &post.Message
	}
	return hookio.RawIndented(out)
}

// forkFields are the status fields a forked skill may write back.
var forkFields = []string{"features", "activeFeatures", "primaryFeature"}

// updateInFork records the phase of a "context: fork" skill on a fork of
// the status. The fork is merged back unless the skill sets
// mergeResult: false, in which case the change is dropped.
func updateInFork(s *session.Session, cfg *skills.Config, skill, feature string, phase pdca.Phase) {
	merge := cfg.ShouldMerge()
	id, _, err := s.Forks.Fork(skill, fork.Options{SkipMerge: !merge, IncludeFields: forkFields})
	if err != nil {
		s.Log.Log("SkillPost", "Failed to fork status", map[string]any{"error": err.Error()})
		return
	}
	err = s.Forks.UpdateFeature(id, feature, map[string]any{
		"phase":       string(phase),
		"phaseNumber": pdca.PhaseNumber(phase),
		"lastSkill":   skill,
	})
	if err != nil || !merge {
		s.Forks.Discard(id)
		return
	}
	if _, err := s.Forks.Merge(id, nil); err != nil {
		s.Log.Log("SkillPost", "Failed to merge fork", map[string]any{"forkId": id, "error": err.Error()})
	}
}
