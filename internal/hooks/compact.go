package hooks

import (
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/session"
	"github.com/bkit-dev/bkit/internal/snapshot"
)

// contextCompaction snapshots the status document before the host
// compacts its context, and hands the model a one-line summary.
func contextCompaction(s *session.Session, in hookio.Input) hookio.Result {
	st, err := s.Store.Get(true)
	if err != nil {
		s.Log.Log("ContextCompaction", "Failed to read status", map[string]any{"error": err.Error()})
	}
	if st == nil {
		s.Log.Log("ContextCompaction", "No PDCA status to preserve", nil)
		return hookio.Empty()
	}

	path, err := snapshot.New(s.Env.ProjectDir).Take(st, in.String("reason"))
	if err != nil {
		s.Log.Log("ContextCompaction", "Failed to save snapshot", map[string]any{"error": err.Error()})
	} else {
		s.Log.Log("ContextCompaction", "Snapshot saved", map[string]any{"path": path})
	}

	return hookOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:     EventPreCompact,
		AdditionalContext: snapshot.Summarize(st).Context(),
	}}.result()
}
