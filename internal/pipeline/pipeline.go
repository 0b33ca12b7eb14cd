// Package pipeline - the 9-phase development pipeline.
//
// Each phase has a skill, the project levels it applies to, and the files
// it is expected to leave behind. Phases that do not apply to a level are
// skipped when advancing.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// Spec names one deliverable and the paths that satisfy it. Any path
// that exists counts.
type Spec struct {
	Name  string
	Paths []string
}

// Phase is one row of the pipeline table.
type Phase struct {
	Number       int
	Name         string
	Skill        string
	Levels       []pdca.Level
	Deliverables []Spec
	// Tip is shown once the phase's deliverables are complete.
	Tip string
}

var all = []pdca.Level{pdca.LevelStarter, pdca.LevelDynamic, pdca.LevelEnterprise}
var dynamicUp = []pdca.Level{pdca.LevelDynamic, pdca.LevelEnterprise}

// Phases is the pipeline in order; Phases[i].Number == i+1.
var Phases = []Phase{
	{
		Number: 1, Name: "Schema/Terminology", Skill: "phase-1-schema", Levels: all,
		Deliverables: []Spec{
			{Name: "Terminology glossary", Paths: []string{"docs/01-plan/glossary.md", "docs/01-plan/terminology.md"}},
			{Name: "Data schema", Paths: []string{"docs/01-plan/schema.md", "docs/01-plan/domain-model.md"}},
		},
		Tip: "Clear conventions accelerate AI-assisted development.",
	},
	{
		Number: 2, Name: "Coding Conventions", Skill: "phase-2-convention", Levels: all,
		Deliverables: []Spec{
			{Name: "Coding conventions", Paths: []string{"CONVENTIONS.md", "docs/01-plan/conventions.md"}},
		},
		Tip: "Mockups help validate UX before coding. For Starter level, simple HTML/CSS mockups are sufficient.",
	},
	{
		Number: 3, Name: "Mockup/Wireframe", Skill: "phase-3-mockup", Levels: all,
		Deliverables: []Spec{
			{Name: "UI mockups", Paths: []string{"mockup", "docs/02-design/mockup.md"}},
		},
		Tip: "Define API contracts before implementation. Use /zero-script-qa to validate APIs.",
	},
	{
		Number: 4, Name: "API Design", Skill: "phase-4-api", Levels: dynamicUp,
		Deliverables: []Spec{
			{Name: "API specification", Paths: []string{"docs/02-design/api-spec.md", "docs/02-design/api.md"}},
		},
		Tip: "Ensure all endpoints return proper JSON logs, then run /zero-script-qa.",
	},
	{
		Number: 5, Name: "Design System", Skill: "phase-5-design-system", Levels: dynamicUp,
		Deliverables: []Spec{
			{Name: "Design tokens", Paths: []string{"docs/02-design/design-system.md", "src/styles/tokens.css", "tailwind.config.js", "tailwind.config.ts"}},
			{Name: "Component library", Paths: []string{"components/ui", "src/components/ui"}},
		},
		Tip: "Build the UI on the design tokens; avoid hardcoded colors.",
	},
	{
		Number: 6, Name: "UI Implementation", Skill: "phase-6-ui-integration", Levels: all,
		Deliverables: []Spec{
			{Name: "UI implementation", Paths: []string{"src", "app", "pages"}},
		},
		Tip: "Run gap-detector to compare design and implementation; iterate with /pdca-iterate below 90%.",
	},
	{
		Number: 7, Name: "SEO & Security", Skill: "phase-7-seo-security", Levels: dynamicUp,
		Deliverables: []Spec{
			{Name: "Security checklist", Paths: []string{"docs/02-design/security-spec.md", "docs/03-analysis/security.md"}},
		},
		Tip: "Use /pdca-analyze for gap analysis and code-analyzer for a security scan.",
	},
	{
		Number: 8, Name: "Code Review", Skill: "phase-8-review", Levels: dynamicUp,
		Deliverables: []Spec{
			{Name: "Review report", Paths: []string{"docs/03-analysis/review.md", "docs/03-analysis/code-review.md"}},
		},
		Tip: "Address every refactoring item, then run /pdca-analyze for a final gap analysis.",
	},
	{
		Number: 9, Name: "Deployment", Skill: "phase-9-deployment", Levels: all,
		Deliverables: []Spec{
			{Name: "Environment template", Paths: []string{".env.example"}},
		},
		Tip: "Generate a completion report with /pdca-report project-complete.",
	},
}

// Get returns phase n.
func Get(n int) (Phase, bool) {
	if n < 1 || n > len(Phases) {
		return Phase{}, false
	}
	return Phases[n-1], true
}

// Applies reports whether p runs at level.
func (p Phase) Applies(level pdca.Level) bool {
	for _, l := range p.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// CanSkip reports whether phase n does not apply to level.
func CanSkip(n int, level pdca.Level) bool {
	p, ok := Get(n)
	return ok && !p.Applies(level)
}

// Next returns the first phase after current that applies to level, or 0
// when the pipeline is finished.
func Next(current int, level pdca.Level) int {
	for n := current + 1; n <= len(Phases); n++ {
		if Phases[n-1].Applies(level) {
			return n
		}
	}
	return 0
}

// Item is one checked deliverable.
type Item struct {
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
	Path   string `json:"path,omitempty"`
}

// Report is the deliverable state of a phase.
type Report struct {
	Phase       int    `json:"phase"`
	Items       []Item `json:"items"`
	AllComplete bool   `json:"allComplete"`
}

// Deliverables checks the files phase n expects under root.
func Deliverables(root string, n int) Report {
	rep := Report{Phase: n, Items: []Item{}, AllComplete: true}
	p, ok := Get(n)
	if !ok {
		return rep
	}
	for _, spec := range p.Deliverables {
		item := Item{Name: spec.Name}
		for _, rel := range spec.Paths {
			full := filepath.Join(root, filepath.FromSlash(rel))
			if _, err := os.Stat(full); err == nil {
				item.Exists, item.Path = true, rel
				break
			}
		}
		if !item.Exists {
			rep.AllComplete = false
		}
		rep.Items = append(rep.Items, item)
	}
	return rep
}

// Missing lists the names of deliverables that do not exist yet.
func (r Report) Missing() []string {
	var out []string
	for _, it := range r.Items {
		if !it.Exists {
			out = append(out, it.Name)
		}
	}
	return out
}

// Checklist renders one line per item; pending is the icon for missing ones.
func (r Report) Checklist(pending string) string {
	lines := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		icon := pending
		if it.Exists {
			icon = "✅"
		}
		lines = append(lines, fmt.Sprintf("  %s %s", icon, it.Name))
	}
	return strings.Join(lines, "\n")
}

// Summary renders the phase table for level with current highlighted.
func Summary(level pdca.Level, current int) string {
	var b strings.Builder
	b.WriteString("📊 Pipeline Status:\n")
	fmt.Fprintf(&b, "   Level: %s\n", level)
	fmt.Fprintf(&b, "   Current Phase: %d\n\n", current)
	b.WriteString("   Phases:\n")
	for _, p := range Phases {
		applies := p.Applies(level)
		icon := "⬜"
		switch {
		case !applies:
			icon = "➖"
		case p.Number < current:
			icon = "✅"
		case p.Number == current:
			icon = "🔄"
		}
		fmt.Fprintf(&b, "   %s Phase %d: %s", icon, p.Number, p.Name)
		if !applies {
			b.WriteString(" (N/A for this level)")
		}
		b.WriteString("\n")
	}
	return b.String()
}
