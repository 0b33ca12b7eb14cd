package pdca

import (
	"os"
	"strings"

	"github.com/bkit-dev/bkit/internal/config"
)

// Level is the project complexity tier that decides which phases apply.
type Level string

const (
	LevelStarter    Level = "Starter"
	LevelDynamic    Level = "Dynamic"
	LevelEnterprise Level = "Enterprise"
)

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	switch Level(s) {
	case LevelStarter, LevelDynamic, LevelEnterprise:
		return true
	}
	return false
}

// levelPhases lists, per level, the required, optional and skipped phases.
// Development-pipeline phases appear as "phase-N".
type levelPhases struct {
	required []string
	optional []string
	skip     []string
}

var levelPhaseMap = map[Level]levelPhases{
	LevelStarter: {
		required: []string{"plan", "do", "check"},
		optional: []string{"design"},
		skip:     []string{"phase-1", "phase-2", "phase-4", "phase-7", "phase-9"},
	},
	LevelDynamic: {
		required: []string{"plan", "design", "do", "check", "report"},
		optional: []string{"phase-3", "phase-5", "phase-6"},
		skip:     []string{"phase-9"},
	},
	LevelEnterprise: {
		required: []string{
			"plan", "design", "do", "check", "report",
			"phase-1", "phase-2", "phase-3", "phase-4",
			"phase-5", "phase-6", "phase-7", "phase-8", "phase-9",
		},
	},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RequiredPhases returns the phases level cannot skip.
func RequiredPhases(level Level) []string {
	return levelPhaseMap[level].required
}

// CanSkipPhase reports whether phase is skipped or optional at level.
func CanSkipPhase(level Level, phase string) bool {
	m, ok := levelPhaseMap[level]
	if !ok {
		return false
	}
	return contains(m.skip, phase) || contains(m.optional, phase)
}

// IsPhaseApplicable reports whether phase is required or optional at level.
// Unknown levels accept every phase.
func IsPhaseApplicable(phase string, level Level) bool {
	m, ok := levelPhaseMap[level]
	if !ok {
		return true
	}
	return contains(m.required, phase) || contains(m.optional, phase)
}

// NextPhaseForLevel returns the next required PDCA phase after current.
func NextPhaseForLevel(current Phase, level Level) Phase {
	i := indexOf(current)
	if i < 0 {
		return ""
	}
	required := RequiredPhases(level)
	for _, p := range PhaseOrder[i+1:] {
		if contains(required, string(p)) {
			return p
		}
	}
	return ""
}

// Guide is the human description of a level.
type Guide struct {
	Description string `json:"description"`
	Phases      string `json:"phases"`
	Tips        string `json:"tips"`
}

var levelGuides = map[Level]Guide{
	LevelStarter: {
		Description: "Simple static website or basic project",
		Phases:      "Plan → Do → Check",
		Tips:        "Focus on getting things done. Skip heavy documentation.",
	},
	LevelDynamic: {
		Description: "Fullstack application with backend",
		Phases:      "Plan → Design → Do → Check → Report",
		Tips:        "Design document helps maintain consistency. Consider API documentation.",
	},
	LevelEnterprise: {
		Description: "Complex microservices or enterprise system",
		Phases:      "Full 9-phase pipeline with all documentation",
		Tips:        "Follow all phases. Use strict conventions and thorough testing.",
	},
}

// LevelGuide returns the guide for level, defaulting to Dynamic.
func LevelGuide(level Level) Guide {
	if g, ok := levelGuides[level]; ok {
		return g
	}
	return levelGuides[LevelDynamic]
}

// Project markers. Enterprise markers match as lowercase substrings of
// top-level entry names, Dynamic markers match exact names.
var (
	enterpriseMarkers = []string{
		"kubernetes", "k8s", "terraform", "microservices",
		"docker-compose.yml", "helm", "argocd",
	}
	dynamicMarkers = []string{
		"package.json", "requirements.txt", "go.mod", "Cargo.toml",
		"pom.xml", "build.gradle", "composer.json", "Gemfile",
	}
)

// getenv is a package-level variable for testability.
var getenv = os.Getenv

// DetectLevel resolves the project level: BKIT_LEVEL, then config
// "level", then top-level markers in root, then Starter.
func DetectLevel(root string, cfg *config.Config) Level {
	if env := getenv("BKIT_LEVEL"); ValidLevel(env) {
		return Level(env)
	}
	if lvl := cfg.String("level", ""); ValidLevel(lvl) {
		return Level(lvl)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return LevelStarter
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	for _, marker := range enterpriseMarkers {
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), marker) {
				return LevelEnterprise
			}
		}
	}
	for _, marker := range dynamicMarkers {
		if contains(names, marker) {
			return LevelDynamic
		}
	}
	return LevelStarter
}
