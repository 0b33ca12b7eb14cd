package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/bkit-dev/bkit/internal/platform"
)

// Level names a layer of the context hierarchy.
type Level string

const (
	LevelPlugin  Level = "plugin"
	LevelUser    Level = "user"
	LevelProject Level = "project"
	LevelSession Level = "session"
)

// Priority orders levels; higher values override lower ones.
func (l Level) Priority() int {
	switch l {
	case LevelPlugin:
		return 1
	case LevelUser:
		return 2
	case LevelProject:
		return 3
	case LevelSession:
		return 4
	}
	return 0
}

// HierarchyTTL is how long a merged hierarchy is reused.
const HierarchyTTL = 5 * time.Second

// UserConfigFile is the file name read from the user config directory.
const UserConfigFile = "user-config.json"

// ContextLevel is one loaded layer.
type ContextLevel struct {
	Level    Level          `json:"level"`
	Priority int            `json:"priority"`
	Source   string         `json:"source"`
	Data     map[string]any `json:"data"`
	LoadedAt time.Time      `json:"loadedAt"`
}

// LevelValue records the value a level assigned to a key.
type LevelValue struct {
	Level Level `json:"level"`
	Value any   `json:"value"`
}

// Conflict is a top-level key that two levels set to different values.
type Conflict struct {
	Key      string       `json:"key"`
	Values   []LevelValue `json:"values"`
	Resolved any          `json:"resolved"`
}

// Merged is the result of layering every level.
type Merged struct {
	Levels    []ContextLevel `json:"levels"`
	Merged    map[string]any `json:"merged"`
	Conflicts []Conflict     `json:"conflicts"`
}

// Hierarchy merges plugin, user, project and session configuration.
// Merging is shallow: a higher level replaces a whole top-level key.
type Hierarchy struct {
	env     platform.Env
	userDir string

	mu       sync.Mutex
	session  map[string]any
	cached   *Merged
	cachedAt time.Time
}

// Package-level variables for testability.
var (
	userHomeDir = os.UserHomeDir
	timeNow     = time.Now
)

// NewHierarchy builds a hierarchy rooted at env.
func NewHierarchy(env platform.Env) *Hierarchy {
	return &Hierarchy{
		env:     env,
		userDir: UserConfigDir(env),
		session: map[string]any{},
	}
}

// UserConfigDir returns ~/.claude/bkit or ~/.gemini/bkit.
func UserConfigDir(env platform.Env) string {
	home, err := userHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, env.ConfigDirName(), "bkit")
}

// LoadLevel reads a single level. Returns nil when the level has no data
// source or its file is unreadable.
func (h *Hierarchy) LoadLevel(level Level) *ContextLevel {
	now := timeNow()
	var path string
	switch level {
	case LevelPlugin:
		path = filepath.Join(h.env.PluginRoot, JSONFile)
	case LevelUser:
		if h.userDir == "" {
			return nil
		}
		path = filepath.Join(h.userDir, UserConfigFile)
	case LevelProject:
		path = filepath.Join(h.env.ProjectDir, JSONFile)
	case LevelSession:
		return &ContextLevel{
			Level:    LevelSession,
			Priority: LevelSession.Priority(),
			Source:   "memory",
			Data:     h.AllSession(),
			LoadedAt: now,
		}
	default:
		return nil
	}

	data, err := ReadJSONFile(path)
	if err != nil {
		return nil
	}
	return &ContextLevel{Level: level, Priority: level.Priority(), Source: path, Data: data, LoadedAt: now}
}

// Get returns the merged hierarchy, reusing a cached result younger than
// HierarchyTTL unless force is set.
func (h *Hierarchy) Get(force bool) *Merged {
	h.mu.Lock()
	if !force && h.cached != nil && timeNow().Sub(h.cachedAt) < HierarchyTTL {
		m := h.cached
		h.mu.Unlock()
		return m
	}
	h.mu.Unlock()

	var levels []ContextLevel
	for _, name := range []Level{LevelPlugin, LevelUser, LevelProject, LevelSession} {
		if l := h.LoadLevel(name); l != nil {
			levels = append(levels, *l)
		}
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Priority < levels[j].Priority })

	merged := map[string]any{}
	seen := map[string][]LevelValue{}
	var conflicts []Conflict

	for _, l := range levels {
		for _, key := range sortedKeys(l.Data) {
			value := l.Data[key]
			if prev, ok := merged[key]; ok && !reflect.DeepEqual(prev, value) {
				values := append(append([]LevelValue{}, seen[key]...), LevelValue{Level: l.Level, Value: value})
				conflicts = append(conflicts, Conflict{Key: key, Values: values, Resolved: value})
			}
			merged[key] = value
			seen[key] = append(seen[key], LevelValue{Level: l.Level, Value: value})
		}
	}

	result := &Merged{Levels: levels, Merged: merged, Conflicts: conflicts}
	h.mu.Lock()
	h.cached = result
	h.cachedAt = timeNow()
	h.mu.Unlock()
	return result
}

// Config returns the merged hierarchy as a Config for dot-path lookups.
func (h *Hierarchy) Config() *Config {
	return &Config{data: h.Get(false).Merged, source: "hierarchy"}
}

// Value resolves a dot path against the merged hierarchy.
func (h *Hierarchy) Value(path string, def any) any {
	if v, ok := Lookup(h.Get(false).Merged, path); ok {
		return v
	}
	return def
}

// SetSession stores a session-level value and drops the cached merge.
func (h *Hierarchy) SetSession(key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session[key] = value
	h.cached = nil
}

// Session returns a session-level value or def.
func (h *Hierarchy) Session(key string, def any) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v, ok := h.session[key]; ok {
		return v
	}
	return def
}

// ClearSession drops all session-level values.
func (h *Hierarchy) ClearSession() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = map[string]any{}
	h.cached = nil
}

// AllSession returns a copy of the session-level values.
func (h *Hierarchy) AllSession() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]any, len(h.session))
	for k, v := range h.session {
		out[k] = v
	}
	return out
}

// Invalidate drops the cached merge.
func (h *Hierarchy) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cached = nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
