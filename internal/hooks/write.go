package hooks

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/permission"
	"github.com/bkit-dev/bkit/internal/session"
	"github.com/bkit-dev/bkit/internal/task"
)

const (
	conventionHint = "Conventions: Components=PascalCase, Functions=camelCase, Constants=UPPER_SNAKE_CASE"
	envHint        = "Env naming: NEXT_PUBLIC_* (client), DB_* (database), API_* (external), AUTH_* (auth)"
)

// preWrite checks permissions and gives PDCA guidance sized to the change.
func preWrite(s *session.Session, in hookio.Input) hookio.Result {
	path := in.FilePath()
	if path == "" {
		return hookio.Empty()
	}
	tool := firstNonEmpty(in.ToolName(), "Write")

	var parts []string
	switch s.Permissions.Check(tool, path) {
	case permission.Deny:
		res := hookio.Block(fmt.Sprintf("%s to %s is denied by permission policy.", tool, path))
		res.ExitCode = 2
		return res
	case permission.Ask:
		parts = append(parts, fmt.Sprintf("%s to %s requires confirmation.", tool, path))
	}

	content := in.Content()
	lines := task.LineCount(content)
	level := task.PdcaLevel(task.ClassifyByLines(content))
	sized := level == task.LevelStandard || level == task.LevelFull

	var feature, designDoc, planDoc string
	if pdca.IsSourceFile(path, pdca.RulesFrom(s.Settings)) {
		feature = pdca.FeatureFromPath(path, s.Settings.FeaturePatterns)
		if feature != "" {
			designDoc = rel(s, pdca.FindDesignDoc(s.Env.ProjectDir, feature))
			planDoc = rel(s, pdca.FindPlanDoc(s.Env.ProjectDir, feature))
			if err := s.Store.Update(feature, pdca.PhaseDo, pdca.Patch{"lastFile": rel(s, path)}); err != nil {
				s.Log.Log("PreWrite", "Failed to update status", map[string]any{"error": err.Error(), "feature": feature})
			}
		}
	}

	switch level {
	case task.LevelLight:
		parts = append(parts, fmt.Sprintf("Minor change (%d lines). PDCA optional.", lines))
	case task.LevelStandard:
		switch {
		case designDoc != "":
			parts = append(parts, fmt.Sprintf("Feature (%d lines). Design doc exists: %s", lines, designDoc))
		case feature != "":
			parts = append(parts, fmt.Sprintf("Feature (%d lines). Design doc recommended for '%s'. Consider /pdca-design %s", lines, feature, feature))
		default:
			parts = append(parts, fmt.Sprintf("Feature-level change (%d lines). Design doc recommended.", lines))
		}
	case task.LevelFull:
		switch {
		case designDoc != "":
			parts = append(parts, fmt.Sprintf("Major feature (%d lines). Design doc exists: %s. Refer during implementation.", lines, designDoc))
		case feature != "":
			parts = append(parts, fmt.Sprintf("Major feature (%d lines) without design doc. Strongly recommend /pdca-design %s first.", lines, feature))
		default:
			parts = append(parts, fmt.Sprintf("Major feature (%d lines). Design doc strongly recommended before implementation.", lines))
		}
	}

	if sized {
		if planDoc != "" && designDoc == "" {
			parts = append(parts, fmt.Sprintf("Plan exists at %s. Design doc not yet created.", planDoc))
		}
		if pdca.IsCodeFile(path) {
			parts = append(parts, conventionHint)
		} else if pdca.IsEnvFile(path) {
			parts = append(parts, envHint)
		}
		if feature != "" {
			parts = append(parts, task.TaskGuidance(pdca.PhaseDo, feature, pdca.PhaseDesign))
		}
	}

	if len(parts) == 0 {
		return hookio.Empty()
	}
	return hookio.Allow(strings.Join(parts, " | "), EventPreToolUse)
}

func designValidatorPre(_ *session.Session, in hookio.Input) hookio.Result {
	path := filepath.ToSlash(in.FilePath())
	if !strings.Contains(path, "docs/02-design/") || !strings.HasSuffix(path, ".md") {
		return hookio.Empty()
	}
	return hookio.Allow(`📋 Design Document Detected!
Validation checklist:
- [ ] Overview section
- [ ] Requirements section
- [ ] Architecture diagram
- [ ] Data model
- [ ] API specification
- [ ] Error handling
After writing, run validation to check completeness.`, EventPreToolUse)
}

var scriptExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

func phase2ConventionPre(s *session.Session, in hookio.Input) hookio.Result {
	if s.ActiveSkill != "phase-2-convention" {
		return hookio.Empty()
	}
	path := in.FilePath()
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(path, ext) {
			return hookio.Allow(`📏 Convention Check:
- Components: PascalCase
- Functions: camelCase
- Constants: UPPER_SNAKE_CASE
- Files: kebab-case or PascalCase
See CONVENTIONS.md for full rules`, EventPreToolUse)
		}
	}
	if strings.Contains(path, ".env") {
		return hookio.Allow(`🔒 Environment Variable Convention:
- NEXT_PUBLIC_* for client
- DB_* for database
- API_* for external APIs
- AUTH_* for authentication`, EventPreToolUse)
	}
	return hookio.Empty()
}

// codeAnalyzerPre keeps the analyzer agent read-only.
func codeAnalyzerPre(s *session.Session, _ hookio.Input) hookio.Result {
	if bare(s.ActiveAgent) != "code-analyzer" {
		return hookio.Empty()
	}
	return hookio.Block("Code analyzer agent is read-only and cannot modify files")
}
