package pdca

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bkit-dev/bkit/internal/cache"
	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/lockfile"
)

const (
	// StatusFile is the status document path relative to the project root.
	StatusFile = "docs/.pdca-status.json"

	cacheKey = "pdca-status"
	cacheTTL = 3 * time.Second
)

// StatusPath returns the absolute path of the status document.
func StatusPath(projectRoot string) string {
	return filepath.Join(projectRoot, filepath.FromSlash(StatusFile))
}

// Patch is merged into a FeatureState on Update. Keys use the JSON names
// ("matchRate", "lastFile", ...). A "timestamps" map is merged key-wise.
type Patch map[string]any

// Store reads and writes the status document for one project.
// Every read-modify-write runs under an advisory file lock.
type Store struct {
	root            string
	path            string
	cache           *cache.Cache
	log             *debuglog.Logger
	featurePatterns []string
}

// Option customizes a Store.
type Option func(*Store)

// WithCache shares c with the rest of the session.
func WithCache(c *cache.Cache) Option { return func(s *Store) { s.cache = c } }

// WithLogger routes read and write failures to l.
func WithLogger(l *debuglog.Logger) Option { return func(s *Store) { s.log = l } }

// WithFeaturePatterns overrides the directory names ExtractFeature looks for.
func WithFeaturePatterns(p []string) Option { return func(s *Store) { s.featurePatterns = p } }

// NewStore creates a store rooted at projectRoot.
func NewStore(projectRoot string, opts ...Option) *Store {
	s := &Store{
		root:            projectRoot,
		path:            StatusPath(projectRoot),
		featurePatterns: config.DefaultFeaturePatterns,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New()
	}
	if s.log == nil {
		s.log = debuglog.Nop()
	}
	return s
}

// Root returns the project root.
func (s *Store) Root() string { return s.root }

// Path returns the status document path.
func (s *Store) Path() string { return s.path }

// --- Reads ---

// Get returns the status document. A cached copy younger than three
// seconds is reused unless force is set. A missing file yields nil, nil.
// A v1.0 document is migrated and persisted before it is returned.
func (s *Store) Get(force bool) (*Status, error) {
	if !force {
		if v, ok := s.cache.Get(cacheKey, cacheTTL); ok {
			return v.(*Status), nil
		}
	}

	st, migrated, err := s.read()
	if err != nil {
		s.log.Log("PDCA", "Failed to read status", map[string]any{"error": err.Error()})
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	if migrated {
		if err := s.Save(st); err != nil {
			return st, err
		}
		s.log.Log("PDCA", "Migrated status from v1.0 to v2.0", nil)
	}
	s.cache.Set(cacheKey, st)
	return st, nil
}

// read loads the file without touching the cache.
func (s *Store) read() (st *Status, migrated bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading status: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("parsing status: %w", err)
	}
	if NeedsMigration(raw) {
		raw = Migrate(raw)
		migrated = true
		if data, err = json.Marshal(raw); err != nil {
			return nil, false, fmt.Errorf("encoding migrated status: %w", err)
		}
	}

	var out Status
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("decoding status: %w", err)
	}
	return &out, migrated, nil
}

// Feature returns the state of feature, or nil.
func (s *Store) Feature(name string) *FeatureState {
	st, _ := s.Get(false)
	if st == nil {
		return nil
	}
	return st.Features[name]
}

// ActiveFeatures returns the active feature list.
func (s *Store) ActiveFeatures() []string {
	st, _ := s.Get(false)
	if st == nil {
		return []string{}
	}
	return st.ActiveFeatures
}

// Primary returns the primary feature, or "".
func (s *Store) Primary() string {
	st, _ := s.Get(false)
	if st == nil {
		return ""
	}
	return string(st.PrimaryFeature)
}

// --- Writes ---

// Save persists status under the lock.
func (s *Store) Save(st *Status) error {
	return lockfile.With(s.path, func() error { return s.write(st) })
}

// write stamps and persists st. Callers hold the lock.
func (s *Store) write(st *Status) error {
	now := Now()
	st.LastUpdated = now
	st.Session.LastActivity = now

	if err := lockfile.WriteJSON(s.path, st); err != nil {
		s.log.Log("PDCA", "Failed to save status", map[string]any{"error": err.Error()})
		return fmt.Errorf("saving status: %w", err)
	}
	s.cache.Set(cacheKey, st)
	s.log.Log("PDCA", "Status saved", map[string]any{"version": st.Version})
	return nil
}

// mutate runs fn on a freshly read document under the lock and saves the
// result. When create is set, a missing or unreadable document starts
// from NewStatus; otherwise mutate is a no-op for a missing document.
// fn returns false to skip the save.
func (s *Store) mutate(create bool, fn func(*Status) bool) error {
	return lockfile.With(s.path, func() error {
		st, _, err := s.read()
		if err != nil {
			s.log.Log("PDCA", "Failed to read status", map[string]any{"error": err.Error()})
		}
		if st == nil {
			if !create {
				return nil
			}
			st = NewStatus()
		}
		if !fn(st) {
			return nil
		}
		return s.write(st)
	})
}

// Modify runs fn on the current document under the lock and saves it
// when fn returns true. A missing document is left alone.
func (s *Store) Modify(fn func(*Status) bool) error {
	return s.mutate(false, fn)
}

// InitIfNotExists writes the default document when none exists.
func (s *Store) InitIfNotExists() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return lockfile.With(s.path, func() error {
		if _, err := os.Stat(s.path); err == nil {
			return nil
		}
		st := NewStatus()
		if err := lockfile.WriteJSON(s.path, st); err != nil {
			return fmt.Errorf("initializing status: %w", err)
		}
		s.cache.Set(cacheKey, st)
		s.log.Log("PDCA", "Status file initialized (v2.0)", map[string]any{"path": s.path})
		return nil
	})
}

// Update moves feature to phase and merges patch into its state. The
// feature is created on first use, made active, and made primary when no
// primary is set.
func (s *Store) Update(feature string, phase Phase, patch Patch) error {
	if feature == "" {
		return fmt.Errorf("update: feature name is required")
	}
	if !IsKnownPhase(phase) {
		return fmt.Errorf("update %s: unknown phase %q", feature, phase)
	}
	err := s.mutate(true, func(st *Status) bool {
		applyUpdate(st, feature, phase, patch)
		return true
	})
	if err == nil {
		s.log.Log("PDCA", fmt.Sprintf("Updated %s to %s", feature, phase), patch)
	}
	return err
}

func applyUpdate(st *Status, feature string, phase Phase, patch Patch) {
	fs, ok := st.Features[feature]
	if !ok || fs == nil {
		fs = newFeature(phase)
		st.Features[feature] = fs
	}

	merged := mergePatch(fs, patch)
	merged.Phase = phase
	merged.PhaseNumber = PhaseNumber(phase)
	if merged.Timestamps == nil {
		merged.Timestamps = map[string]string{}
	}
	merged.Timestamps["lastUpdated"] = Now()
	st.Features[feature] = merged

	st.Activate(feature)
	if st.PrimaryFeature == "" {
		st.PrimaryFeature = NullString(feature)
	}
	st.AppendHistory(HistoryEntry{"feature": feature, "phase": string(phase), "action": "updated"})
}

// mergePatch overlays patch onto fs through the JSON form, so unknown
// keys land in Extra and typed keys keep their types.
func mergePatch(fs *FeatureState, patch Patch) *FeatureState {
	if len(patch) == 0 {
		return fs
	}
	data, err := json.Marshal(fs)
	if err != nil {
		return fs
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fs
	}

	for k, v := range patch {
		if k == "timestamps" {
			ts, _ := doc["timestamps"].(map[string]any)
			if ts == nil {
				ts = map[string]any{}
			}
			if add, ok := v.(map[string]any); ok {
				for tk, tv := range add {
					ts[tk] = tv
				}
			} else if add, ok := v.(map[string]string); ok {
				for tk, tv := range add {
					ts[tk] = tv
				}
			}
			doc["timestamps"] = ts
			continue
		}
		doc[k] = v
	}

	data, err = json.Marshal(doc)
	if err != nil {
		return fs
	}
	var out FeatureState
	if err := json.Unmarshal(data, &out); err != nil {
		return fs
	}
	return &out
}

// AddHistory appends entry to an existing document.
func (s *Store) AddHistory(entry HistoryEntry) error {
	return s.mutate(false, func(st *Status) bool {
		st.AppendHistory(entry)
		return true
	})
}

// Complete moves feature to completed and records the completion time.
func (s *Store) Complete(feature string) error {
	return s.Update(feature, PhaseCompleted, Patch{
		"timestamps": map[string]any{"completed": Now()},
	})
}

// SetActive makes feature primary and active.
func (s *Store) SetActive(feature string) error {
	return s.mutate(false, func(st *Status) bool {
		st.PrimaryFeature = NullString(feature)
		st.Activate(feature)
		return true
	})
}

// AddActive adds feature to the active set, optionally as primary.
func (s *Store) AddActive(feature string, primary bool) error {
	return s.mutate(false, func(st *Status) bool {
		st.Activate(feature)
		if primary {
			st.PrimaryFeature = NullString(feature)
		}
		return true
	})
}

// RemoveActive drops feature from the active set.
func (s *Store) RemoveActive(feature string) error {
	return s.mutate(false, func(st *Status) bool {
		st.Deactivate(feature)
		return true
	})
}

// SwitchContext makes a known feature primary. Returns false when the
// document or the feature does not exist.
func (s *Store) SwitchContext(feature string) bool {
	switched := false
	err := s.mutate(false, func(st *Status) bool {
		if _, ok := st.Features[feature]; !ok {
			return false
		}
		st.PrimaryFeature = NullString(feature)
		st.Activate(feature)
		switched = true
		return true
	})
	return switched && err == nil
}

// SetPipeline overwrites the development pipeline position.
func (s *Store) SetPipeline(fn func(*PipelineState)) error {
	return s.mutate(true, func(st *Status) bool {
		fn(&st.Pipeline)
		return true
	})
}

// SetSession updates the session block.
func (s *Store) SetSession(fn func(*SessionInfo)) error {
	return s.mutate(true, func(st *Status) bool {
		fn(&st.Session)
		return true
	})
}

// --- Feature extraction ---

// FeatureContext is what ExtractFeature can draw on.
type FeatureContext struct {
	Feature  string
	FilePath string
}

// ExtractFeature names the feature a hook event concerns: an explicit
// feature, else the directory after a feature pattern in the file path
// (features/<name>/...), else the primary feature.
func (s *Store) ExtractFeature(ctx FeatureContext) string {
	if ctx.Feature != "" {
		return ctx.Feature
	}
	if ctx.FilePath != "" {
		if f := FeatureFromPath(ctx.FilePath, s.featurePatterns); f != "" {
			return f
		}
	}
	return s.Primary()
}

// FeatureFromPath returns the path segment following the first matching
// pattern, or "".
func FeatureFromPath(path string, patterns []string) string {
	slashed := filepath.ToSlash(path)
	for _, p := range patterns {
		re, err := regexp.Compile(regexp.QuoteMeta(p) + `/([^/]+)`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(slashed); m != nil && m[1] != "" {
			return m[1]
		}
	}
	return ""
}
