package pipeline

import (
	"fmt"
	"strings"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// Outcome is the kind of result Transition produced.
type Outcome string

const (
	OutcomeIncomplete Outcome = "incomplete"
	OutcomeAdvanced   Outcome = "advanced"
	OutcomeFinished   Outcome = "finished"
)

// Result describes a transition attempt.
type Result struct {
	Outcome Outcome
	From    int
	To      int
	Missing []string
	Message string
}

// Transition completes the current pipeline phase and moves to the next
// one that applies to the project level. current overrides the phase in
// the status document when non-zero. Nothing is written while the
// current phase still has missing deliverables.
func Transition(store *pdca.Store, current int, auto bool) (*Result, error) {
	st, err := store.Get(false)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	if st == nil {
		st = pdca.NewStatus()
	}
	level := st.Pipeline.Level
	if level == "" {
		level = pdca.LevelDynamic
	}
	if current == 0 {
		current = st.Pipeline.CurrentPhase
	}
	if current == 0 {
		current = 1
	}
	from, ok := Get(current)
	if !ok {
		return nil, fmt.Errorf("unknown pipeline phase %d", current)
	}

	rep := Deliverables(store.Root(), current)
	if !rep.AllComplete {
		missing := rep.Missing()
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ Phase %d (%s) not complete.\n\nRemaining deliverables:\n", current, from.Name)
		for _, m := range missing {
			fmt.Fprintf(&b, "  ❌ %s\n", m)
		}
		b.WriteString("\nComplete these items before transitioning.")
		return &Result{Outcome: OutcomeIncomplete, From: current, Missing: missing, Message: b.String()}, nil
	}

	next := Next(current, level)
	if next == 0 {
		msg := "🎉 All Pipeline Phases Complete!\n\n" + Summary(level, current) +
			"\nYour project is ready for deployment!\nRun: /phase-9-deployment to finalize\n\n" +
			"Or generate a completion report:\nRun: /pdca-report project-complete"
		return &Result{Outcome: OutcomeFinished, From: current, Message: msg}, nil
	}

	err = store.SetPipeline(func(p *pdca.PipelineState) {
		p.CurrentPhase = next
		p.PhaseHistory = append(p.PhaseHistory, pdca.PhaseRecord{Phase: current, CompletedAt: pdca.Now()})
	})
	if err != nil {
		return nil, fmt.Errorf("saving pipeline: %w", err)
	}

	to, _ := Get(next)
	hint := "💡 Run /pipeline-next to continue"
	if auto {
		hint = "⚡ Auto-advancing..."
	}
	msg := fmt.Sprintf("✅ Phase %d (%s) → Complete!\n\n%s\n🎯 Next: Phase %d - %s\n   Run: /%s\n\n%s",
		current, from.Name, Summary(level, next), next, to.Name, to.Skill, hint)
	return &Result{Outcome: OutcomeAdvanced, From: current, To: next, Message: msg}, nil
}

// StopMessage is the note shown when a phase skill stops: the deliverable
// checklist and, once complete, what to run next.
func StopMessage(root string, n int, level pdca.Level) string {
	p, ok := Get(n)
	if !ok {
		return ""
	}
	rep := Deliverables(root, n)
	var b strings.Builder
	if !rep.AllComplete {
		fmt.Fprintf(&b, "📋 Phase %d (%s) in progress.\n\nDeliverables status:\n%s\n\n", n, p.Name, rep.Checklist("⏳"))
		if n == 7 {
			b.WriteString("⚠️ Security items are critical - complete before review phase.")
		} else {
			fmt.Fprintf(&b, "Complete remaining items before proceeding to Phase %d.", n+1)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "✅ Phase %d (%s) completed!\n", n, p.Name)
	if len(rep.Items) > 0 {
		fmt.Fprintf(&b, "\nDeliverables verified:\n%s\n", rep.Checklist("❌"))
	}
	if next := Next(n, level); next != 0 {
		np, _ := Get(next)
		fmt.Fprintf(&b, "\n🎯 Next: Phase %d - %s\n   Run: /%s\n", np.Number, np.Name, np.Skill)
	}
	if n == 3 && level == pdca.LevelStarter {
		b.WriteString("\n💡 Starter Level: If your site is static (no backend), you can skip the API phase.")
	} else if p.Tip != "" {
		fmt.Fprintf(&b, "\n💡 Tip: %s", p.Tip)
	}
	return b.String()
}
