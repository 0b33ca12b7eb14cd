package task

import (
	"fmt"
	"strings"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// Task is a PDCA task record handed to the host's task list.
type Task struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"metadata"`
	BlockedBy   []string `json:"blockedBy,omitempty"`
	Status      string   `json:"status,omitempty"`
}

// Metadata links a task back to its PDCA position.
type Metadata struct {
	PdcaPhase pdca.Phase `json:"pdcaPhase"`
	PdcaOrder int        `json:"pdcaOrder"`
	Feature   string     `json:"feature"`
	Level     pdca.Level `json:"level"`
	CreatedAt string     `json:"createdAt"`
}

// Options tune task creation.
type Options struct {
	Level        pdca.Level
	DocPath      string
	SkipIfExists bool
}

// ChainPhases are the phases a task chain covers. act is created on
// demand when a check falls short.
var ChainPhases = []pdca.Phase{pdca.PhasePlan, pdca.PhaseDesign, pdca.PhaseDo, pdca.PhaseCheck, pdca.PhaseReport}

// Subject is "<icon> [Phase] feature".
func Subject(phase pdca.Phase, feature string) string {
	icon := pdca.PhaseIcon(phase)
	if icon == "" || phase == pdca.PhaseArchived || phase == pdca.PhaseCompleted {
		icon = "📌"
	}
	return fmt.Sprintf("%s [%s] %s", icon, pdca.PhaseTitle(phase), feature)
}

var descriptions = map[pdca.Phase]string{
	pdca.PhasePlan:   "Plan phase for %s. Define requirements and scope.",
	pdca.PhaseDesign: "Design phase for %s. Create detailed design document.",
	pdca.PhaseDo:     "Implementation phase for %s. Build according to design.",
	pdca.PhaseCheck:  "Verification phase for %s. Run gap analysis.",
	pdca.PhaseAct:    "Improvement phase for %s. Fix gaps found in check.",
	pdca.PhaseReport: "Reporting phase for %s. Generate completion report.",
}

// Description explains what phase means for feature, citing docPath when set.
func Description(phase pdca.Phase, feature, docPath string) string {
	desc := fmt.Sprintf("%s phase for %s", phase, feature)
	if tmpl, ok := descriptions[phase]; ok {
		desc = fmt.Sprintf(tmpl, feature)
	}
	if docPath != "" {
		desc += "\n\nReference: " + docPath
	}
	return desc
}

// NewMetadata stamps task metadata. An empty level defaults to Dynamic.
func NewMetadata(phase pdca.Phase, feature string, level pdca.Level) Metadata {
	if level == "" {
		level = pdca.LevelDynamic
	}
	return Metadata{
		PdcaPhase: phase,
		PdcaOrder: pdca.PhaseNumber(phase),
		Feature:   feature,
		Level:     level,
		CreatedAt: pdca.Now(),
	}
}

var phaseGuidance = map[pdca.Phase]string{
	pdca.PhasePlan:   "Create a plan document with requirements and scope.",
	pdca.PhaseDesign: "Create a design document with architecture and implementation details.",
	pdca.PhaseDo:     "Implement according to the design document.",
	pdca.PhaseCheck:  "Run /pdca analyze to verify implementation matches design.",
	pdca.PhaseAct:    "Run /pdca iterate to fix any gaps found.",
	pdca.PhaseReport: "Run /pdca report to generate completion report.",
}

// TaskGuidance tells the model what the phase task expects, noting the
// phase it is blocked by.
func TaskGuidance(phase pdca.Phase, feature string, blockedBy pdca.Phase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\nFeature: %s\n\n", phase, feature)
	if blockedBy != "" {
		fmt.Fprintf(&b, "⚠️ Blocked by: %s phase\n", blockedBy)
		fmt.Fprintf(&b, "Complete the %s phase first.\n\n", blockedBy)
	}
	b.WriteString(phaseGuidance[phase])
	return b.String()
}

// newID returns "<phase>-<feature>-<unix ms>".
func newID(phase pdca.Phase, feature string) string {
	return fmt.Sprintf("%s-%s-%d", phase, feature, timeNow().UnixMilli())
}

// Chain is the result of CreateChain.
type Chain struct {
	Feature   string               `json:"feature"`
	Tasks     map[pdca.Phase]*Task `json:"tasks"`
	Phases    []pdca.Phase         `json:"phases"`
	CreatedAt string               `json:"createdAt"`
	Skipped   bool                 `json:"skipped,omitempty"`
}

// AutoCreate builds a pending task for phase without persisting it.
func AutoCreate(feature string, phase pdca.Phase, opts Options) *Task {
	return &Task{
		ID:          newID(phase, feature),
		Subject:     Subject(phase, feature),
		Description: Description(phase, feature, opts.DocPath),
		Metadata:    NewMetadata(phase, feature, opts.Level),
		Status:      "pending",
	}
}
