// Package hooks implements the handlers bkit runs for each host hook
// event.
//
// Handlers are registered by name so a single one can be invoked directly
// (bkit hook run <name>). Dispatch routes an event to the handler chain
// that serves it and journals the outcome.
package hooks

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/session"
)

// Host events.
const (
	EventSessionStart     = "SessionStart"
	EventUserPromptSubmit = "UserPromptSubmit"
	EventPreToolUse       = "PreToolUse"
	EventPostToolUse      = "PostToolUse"
	EventStop             = "Stop"
	EventPreCompact       = "PreCompact"
)

// Events lists every event Dispatch accepts.
var Events = []string{
	EventSessionStart,
	EventUserPromptSubmit,
	EventPreToolUse,
	EventPostToolUse,
	EventStop,
	EventPreCompact,
}

// Handler answers one hook invocation.
type Handler func(s *session.Session, in hookio.Input) hookio.Result

var handlers map[string]Handler

func init() {
	handlers = map[string]Handler{
		"session-start":      sessionStart,
		"user-prompt":        userPrompt,
		"context-compaction": contextCompaction,

		"bash-pre":          bashPre,
		"qa-pre-bash":       qaPreBash,
		"phase9-deploy-pre": phase9DeployPre,
		"bash-post":         bashPost,
		"agent-pre":         agentPre,

		"pre-write":             preWrite,
		"design-validator-pre":  designValidatorPre,
		"phase2-convention-pre": phase2ConventionPre,
		"code-analyzer-pre":     codeAnalyzerPre,

		"pdca-post-write":    pdcaPostWrite,
		"phase5-design-post": phase5DesignPost,
		"phase6-ui-post":     phase6UIPost,
		"qa-monitor-post":    qaMonitorPost,
		"gap-detector-post":  gapDetectorPost,
		"skill-post":         skillPost,

		"stop":              unifiedStop,
		"pdca-skill-stop":   pdcaSkillStop,
		"gap-detector-stop": gapDetectorStop,
		"iterator-stop":     iteratorStop,
		"analysis-stop":     analysisStop,
		"qa-stop":           qaStop,
		"learning-stop":     learningStop,
		"pipeline-stop":     pipelineStop,
	}
	for _, p := range phaseStops {
		handlers[p.name] = p.handler
	}
}

// Lookup returns the handler registered as name.
func Lookup(name string) (Handler, bool) {
	h, ok := handlers[name]
	return h, ok
}

// Names lists the registered handlers, sorted.
func Names() []string {
	names := make([]string, 0, len(handlers))
	for n := range handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handlers for event and records the result in the
// hook journal.
func Dispatch(s *session.Session, event string, in hookio.Input) hookio.Result {
	s.Observe(in)
	name, res := route(s, event, in)
	if name != "" {
		record(s, event, name, in, res)
	}
	return res
}

// Run invokes a single named handler.
func Run(s *session.Session, name string, in hookio.Input) (hookio.Result, bool) {
	h, ok := handlers[name]
	if !ok {
		return hookio.Empty(), false
	}
	s.Observe(in)
	res := h(s, in)
	record(s, res.Event, name, in, res)
	return res, true
}

func route(s *session.Session, event string, in hookio.Input) (string, hookio.Result) {
	switch event {
	case EventSessionStart:
		return "session-start", sessionStart(s, in)
	case EventUserPromptSubmit:
		return "user-prompt", userPrompt(s, in)
	case EventPreCompact:
		return "context-compaction", contextCompaction(s, in)
	case EventStop:
		return "stop", unifiedStop(s, in)
	case EventPreToolUse:
		switch in.ToolName() {
		case "Bash":
			return "bash-pre", chain(s, in, "bash-pre", "qa-pre-bash", "phase9-deploy-pre")
		case "Write", "Edit":
			return "pre-write", chain(s, in, "code-analyzer-pre", "pre-write", "design-validator-pre", "phase2-convention-pre")
		case "Task":
			return "agent-pre", agentPre(s, in)
		}
	case EventPostToolUse:
		switch in.ToolName() {
		case "Bash":
			return "bash-post", bashPost(s, in)
		case "Write", "Edit":
			return "write-post", chain(s, in, "pdca-post-write", "phase5-design-post", "phase6-ui-post", "qa-monitor-post", "gap-detector-post")
		case "Skill":
			return "skill-post", skillPost(s, in)
		}
	}
	return "", hookio.Empty()
}

// chain runs the named handlers in order. The first block wins; allow
// messages are collected.
func chain(s *session.Session, in hookio.Input, names ...string) hookio.Result {
	var msgs []string
	event := ""
	for _, n := range names {
		r := handlers[n](s, in)
		switch r.Decision {
		case hookio.DecisionBlock:
			return r
		case hookio.DecisionAllow:
			if r.Message != "" {
				msgs = append(msgs, r.Message)
			}
			if event == "" {
				event = r.Event
			}
		}
	}
	if len(msgs) == 0 {
		return hookio.Empty()
	}
	return hookio.Allow(strings.Join(msgs, "\n\n"), event)
}

func record(s *session.Session, event, name string, in hookio.Input, res hookio.Result) {
	decision := string(res.Decision)
	if decision == "" {
		decision = "empty"
	}
	feature := ""
	if p := in.FilePath(); p != "" {
		feature = pdca.FeatureFromPath(p, s.Settings.FeaturePatterns)
	}
	s.Record(journal.Event{
		Event:    event,
		Handler:  name,
		ToolName: in.ToolName(),
		Decision: decision,
		Feature:  feature,
		Message:  journal.Truncate(res.Message, 200),
	})
}

// ─── Helpers ───

// rel shortens p to a project-relative slash path when it lies inside the
// project.
func rel(s *session.Session, p string) string {
	if p == "" {
		return ""
	}
	if r, err := filepath.Rel(s.Env.ProjectDir, p); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}

// bare drops the "bkit:" namespace from agent and skill names.
func bare(name string) string {
	return strings.TrimPrefix(name, "bkit:")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h hookOutput) result() hookio.Result { return hookio.Raw(h) }

// hookOutput is the hookSpecificOutput envelope.
type hookOutput struct {
	SystemMessage      string             `json:"systemMessage,omitempty"`
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName     string  `json:"hookEventName"`
	OnboardingType    string  `json:"onboardingType,omitempty"`
	HasExistingWork   *bool   `json:"hasExistingWork,omitempty"`
	PrimaryFeature    *string `json:"primaryFeature,omitempty"`
	CurrentPhase      *string `json:"currentPhase,omitempty"`
	MatchRate         *int    `json:"matchRate,omitempty"`
	AdditionalContext string  `json:"additionalContext"`
}
