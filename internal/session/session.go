// Package session builds the per-invocation context every hook handler
// receives. A Session is created when the hook starts and discarded when
// the process exits; nothing in it is global.
package session

import (
	"os"

	"github.com/google/uuid"

	"github.com/bkit-dev/bkit/internal/automation"
	"github.com/bkit-dev/bkit/internal/cache"
	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/fork"
	"github.com/bkit-dev/bkit/internal/hookio"
	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/permission"
	"github.com/bkit-dev/bkit/internal/platform"
	"github.com/bkit-dev/bkit/internal/skills"
	"github.com/bkit-dev/bkit/internal/task"
)

// getenv is a package-level variable for testability.
var getenv = os.Getenv

// Options select the active skill or agent explicitly. Empty fields fall
// back to BKIT_ACTIVE_SKILL and BKIT_ACTIVE_AGENT.
type Options struct {
	Skill string
	Agent string
	// Logger overrides the BKIT_DEBUG driven logger.
	Logger *debuglog.Logger
}

// Session carries everything one hook invocation needs.
type Session struct {
	ID       string
	Env      platform.Env
	Config   *config.Config
	Settings config.Bkit
	Context  *config.Hierarchy
	Log      *debuglog.Logger
	Cache    *cache.Cache

	Store       *pdca.Store
	Policy      automation.Policy
	Tracker     *task.Tracker
	Memory      *memory.Store
	Permissions *permission.Manager
	Forks       *fork.Registry
	Resolver    *skills.Resolver
	Skills      *skills.Loader

	ActiveSkill string
	ActiveAgent string

	journal     *journal.Store
	journalErr  error
	journalOpen bool
}

// New builds a session for env. Configuration problems are logged and
// the defaults are used.
func New(env platform.Env, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = debuglog.New(env)
	}

	cfg, err := config.Load(env)
	if err != nil {
		log.Log("Config", "Failed to load config", map[string]any{"error": err.Error()})
	}
	settings := cfg.Typed()
	c := cache.New()

	store := pdca.NewStore(env.ProjectDir,
		pdca.WithCache(c),
		pdca.WithLogger(log),
		pdca.WithFeaturePatterns(settings.FeaturePatterns),
	)
	policy := automation.FromConfig(settings)
	hierarchy := config.NewHierarchy(env)
	resolver := skills.NewResolver(env.PluginRoot, env.ProjectDir, config.UserConfigDir(env), log)

	s := &Session{
		ID:          uuid.NewString(),
		Env:         env,
		Config:      cfg,
		Settings:    settings,
		Context:     hierarchy,
		Log:         log,
		Cache:       c,
		Store:       store,
		Policy:      policy,
		Tracker:     task.NewTracker(store, policy, log),
		Memory:      memory.New(env.ProjectDir, log),
		Permissions: permission.FromHierarchy(hierarchy, log),
		Forks:       fork.NewRegistry(store, log),
		Resolver:    resolver,
		Skills:      skills.NewLoader(env.PluginRoot, resolver, store, log),
		ActiveSkill: firstNonEmpty(opts.Skill, getenv("BKIT_ACTIVE_SKILL")),
		ActiveAgent: firstNonEmpty(opts.Agent, getenv("BKIT_ACTIVE_AGENT")),
	}
	return s
}

// Observe picks up the active skill from a Skill tool invocation when
// none was set explicitly.
func (s *Session) Observe(in hookio.Input) {
	if s.ActiveSkill != "" || in.ToolName() != "Skill" {
		return
	}
	s.ActiveSkill = in.First([]string{"tool_input", "skill"}, []string{"tool_input", "name"})
}

// Level returns the project level: BKIT_LEVEL when valid, otherwise the
// detected one.
func (s *Session) Level() pdca.Level {
	if l := getenv("BKIT_LEVEL"); pdca.ValidLevel(l) {
		return pdca.Level(l)
	}
	return pdca.DetectLevel(s.Env.ProjectDir, s.Config)
}

// Set stores a session-scoped value in the context hierarchy.
func (s *Session) Set(key string, value any) {
	s.Context.SetSession(key, value)
}

// Value returns a session-scoped value, or def.
func (s *Session) Value(key string, def any) any {
	return s.Context.Session(key, def)
}

// Journal opens the hook journal on first use. Failures are remembered
// and reported on every call.
func (s *Session) Journal() (*journal.Store, error) {
	if !s.journalOpen {
		s.journalOpen = true
		s.journal, s.journalErr = journal.Open(journal.Path(s.Env.ProjectDir))
		if s.journalErr != nil {
			s.Log.Log("Journal", "Failed to open journal", map[string]any{"error": s.journalErr.Error()})
		}
	}
	return s.journal, s.journalErr
}

// Record appends a hook event to the journal. Errors are logged only.
func (s *Session) Record(e journal.Event) {
	j, err := s.Journal()
	if err != nil {
		return
	}
	if e.SessionID == "" {
		e.SessionID = s.ID
	}
	if _, err := j.Record(e); err != nil {
		s.Log.Log("Journal", "Failed to record event", map[string]any{"error": err.Error(), "event": e.Event})
	}
}

// Close releases the journal and the debug log.
func (s *Session) Close() error {
	// Forks live only as long as the hook process.
	if s.Forks != nil && len(s.Forks.Active()) > 0 {
		s.Forks.Clear()
	}
	var err error
	if s.journal != nil {
		err = s.journal.Close()
	}
	if lerr := s.Log.Close(); err == nil {
		err = lerr
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
