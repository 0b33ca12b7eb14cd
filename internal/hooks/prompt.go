package hooks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/intent"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/session"
	"github.com/bkit-dev/bkit/internal/skills"
)

// Confidence floors for prompt hints.
const (
	newFeatureConfidence = 0.8
	agentConfidence      = 0.8
	skillConfidence      = 0.75
)

// userPrompt suggests a workflow for the prompt: a new feature plan, an
// implicit agent or skill, or a clarification.
func userPrompt(s *session.Session, in hookio.Input) hookio.Result {
	prompt := strings.TrimSpace(in.Prompt())
	if len([]rune(prompt)) < 3 {
		return hookio.Empty()
	}

	var parts []string
	if fi := intent.DetectNewFeature(prompt); fi.IsNewFeature && fi.Confidence > newFeatureConfidence {
		parts = append(parts, fmt.Sprintf("New feature detected: %q. Consider /pdca-plan first.", fi.FeatureName))
	}

	if t := s.Settings.Triggers; t.ImplicitEnabled {
		if m := intent.MatchAgent(prompt, t.ConfidenceThreshold); m != nil && m.Confidence >= agentConfidence {
			parts = append(parts, "Suggested agent: "+m.Agent)
		}
		if m := intent.MatchSkill(prompt, t.ConfidenceThreshold); m != nil && m.Confidence > skillConfidence {
			parts = append(parts, "Relevant skill: "+m.Skill)
			preloadImports(s, bare(m.Skill))
		}
	}

	if s.Settings.Triggers.ClarifyAmbiguity {
		var phase pdca.Phase
		if fs := s.Store.Feature(s.Store.Primary()); fs != nil {
			phase = fs.Phase
		}
		a := intent.AmbiguityScore(prompt, intent.Context{CurrentPhase: phase})
		if a.NeedsClarification() {
			parts = append(parts, fmt.Sprintf("Request may be ambiguous (score: %.2f). Consider clarifying.", a.Score))
		}
	}

	if len(parts) == 0 {
		return hookio.Empty()
	}
	return hookio.Allow(hookio.Truncate(strings.Join(parts, " | ")), EventUserPromptSubmit)
}

// preloadImports resolves a matched skill's imports so failures show up
// in the debug log early.
func preloadImports(s *session.Session, skill string) {
	cfg := s.Skills.Config(skill)
	if cfg == nil || len(cfg.Imports) == 0 {
		return
	}
	source := filepath.Join(s.Env.PluginRoot, filepath.FromSlash(skills.SkillFile(skill)))
	content, errs := s.Resolver.Resolve(cfg.Imports, source)
	s.Log.Log("UserPrompt", "Skill imports resolved", map[string]any{
		"skill":  skill,
		"length": len(content),
		"errors": errs,
	})
}
