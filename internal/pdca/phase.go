package pdca

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Phase is a PDCA cycle position.
type Phase string

const (
	PhasePlan      Phase = "plan"
	PhaseDesign    Phase = "design"
	PhaseDo        Phase = "do"
	PhaseCheck     Phase = "check"
	PhaseAct       Phase = "act"
	PhaseReport    Phase = "report"
	PhaseCompleted Phase = "completed"
	PhaseArchived  Phase = "archived"
)

// PhaseOrder is the forward cycle used by Next/Previous.
var PhaseOrder = []Phase{PhasePlan, PhaseDesign, PhaseDo, PhaseCheck, PhaseAct, PhaseReport}

// PhaseInfo is the static description of a phase.
type PhaseInfo struct {
	Order int
	Name  string
	Icon  string
}

var phaseTable = map[Phase]PhaseInfo{
	PhasePlan:      {1, "Plan", "📋"},
	PhaseDesign:    {2, "Design", "📐"},
	PhaseDo:        {3, "Do", "🔨"},
	PhaseCheck:     {4, "Check", "🔍"},
	PhaseAct:       {5, "Act", "🔄"},
	PhaseReport:    {6, "Report", "📊"},
	PhaseArchived:  {7, "Archived", "📦"},
	PhaseCompleted: {7, "Completed", "✅"},
}

// byOrder resolves numbers back to names; archived owns 7.
var byOrder = []Phase{"", PhasePlan, PhaseDesign, PhaseDo, PhaseCheck, PhaseAct, PhaseReport, PhaseArchived}

// PhaseNumber returns the canonical order of phase, or 0 when unknown.
func PhaseNumber(phase Phase) int {
	return phaseTable[phase].Order
}

// PhaseName returns the phase at order n, or "unknown".
func PhaseName(n int) Phase {
	if n <= 0 || n >= len(byOrder) {
		return "unknown"
	}
	return byOrder[n]
}

// PhaseIcon returns the emoji for phase, or "" when unknown.
func PhaseIcon(phase Phase) string {
	return phaseTable[phase].Icon
}

var titleCaser = cases.Title(language.English)

// PhaseTitle returns the display name ("Plan", "Check"). Unknown phases
// are title-cased.
func PhaseTitle(phase Phase) string {
	if info, ok := phaseTable[phase]; ok {
		return info.Name
	}
	return titleCaser.String(string(phase))
}

// IsKnownPhase reports whether phase appears in the phase table.
func IsKnownPhase(phase Phase) bool {
	_, ok := phaseTable[phase]
	return ok
}

func indexOf(phase Phase) int {
	for i, p := range PhaseOrder {
		if p == phase {
			return i
		}
	}
	return -1
}

// NextPhase returns the phase after current, or "" at the end of the cycle.
func NextPhase(current Phase) Phase {
	i := indexOf(current)
	if i < 0 || i >= len(PhaseOrder)-1 {
		return ""
	}
	return PhaseOrder[i+1]
}

// PreviousPhase returns the phase before current, or "".
func PreviousPhase(current Phase) Phase {
	i := indexOf(current)
	if i <= 0 {
		return ""
	}
	return PhaseOrder[i-1]
}

// --- Documents and deliverables ---

// FindDesignDoc returns the first readable design document for feature,
// or "".
func FindDesignDoc(root, feature string) string {
	if feature == "" {
		return ""
	}
	return firstReadable(
		filepath.Join(root, "docs", "02-design", "features", feature+".design.md"),
		filepath.Join(root, "docs", "02-design", feature+".design.md"),
		filepath.Join(root, "docs", "design", feature+".md"),
	)
}

// FindPlanDoc returns the first readable plan document for feature, or "".
func FindPlanDoc(root, feature string) string {
	if feature == "" {
		return ""
	}
	return firstReadable(
		filepath.Join(root, "docs", "01-plan", "features", feature+".plan.md"),
		filepath.Join(root, "docs", "01-plan", feature+".plan.md"),
		filepath.Join(root, "docs", "plan", feature+".md"),
	)
}

func firstReadable(paths ...string) string {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		_ = f.Close()
		return p
	}
	return ""
}

// Deliverable reports whether a phase's output document exists.
type Deliverable struct {
	Exists bool
	Path   string
}

var deliverablePaths = map[Phase][]string{
	PhasePlan:   {"docs/01-plan/features/%s.plan.md", "docs/01-plan/%s.plan.md"},
	PhaseDesign: {"docs/02-design/features/%s.design.md", "docs/02-design/%s.design.md"},
	PhaseCheck:  {"docs/03-analysis/%s.analysis.md", "docs/03-analysis/features/%s.analysis.md"},
	PhaseReport: {"docs/04-report/features/%s.report.md", "docs/04-report/%s.report.md"},
}

// CheckDeliverables looks for the document phase is expected to produce.
// Phases without a deliverable always exist; an empty feature never does.
func CheckDeliverables(root string, phase Phase, feature string) Deliverable {
	if feature == "" {
		return Deliverable{}
	}
	patterns, ok := deliverablePaths[phase]
	if !ok {
		return Deliverable{Exists: true}
	}
	for _, pattern := range patterns {
		full := filepath.Join(root, filepath.FromSlash(fmt.Sprintf(pattern, feature)))
		if _, err := os.Stat(full); err == nil {
			return Deliverable{Exists: true, Path: full}
		}
	}
	return Deliverable{}
}

// Transition is the verdict of ValidateTransition.
type Transition struct {
	Valid  bool
	Reason string
}

// ValidateTransition decides whether feature may move from one phase to
// another. Going back is always allowed and skipping a phase never is.
// Moving forward needs the current phase's deliverable, except from do
// and act.
func ValidateTransition(root, feature string, from, to Phase) Transition {
	fromOrder, toOrder := PhaseNumber(from), PhaseNumber(to)

	if toOrder < fromOrder {
		return Transition{Valid: true, Reason: "Returning to earlier phase"}
	}
	if toOrder > fromOrder+1 {
		return Transition{Reason: fmt.Sprintf("Cannot skip from %s to %s", from, to)}
	}
	if d := CheckDeliverables(root, from, feature); !d.Exists && from != PhaseDo && from != PhaseAct {
		return Transition{Reason: fmt.Sprintf("%s deliverable not found", from)}
	}
	return Transition{Valid: true, Reason: "Transition allowed"}
}
