// Package pdca owns the PDCA status document (docs/.pdca-status.json) and
// the static phase, level and language-tier tables every hook consults.
//
// The package is split the same way for each concern:
//   - types.go: the persisted document and its JSON shape
//   - phase.go / level.go / tier.go / file.go: read-only tables
//   - migrate.go: v1.0 to v2.0 upgrade
//   - store.go: locked read-modify-write persistence
package pdca

import (
	"encoding/json"
	"sort"
)

// StatusVersion is the schema version written by this package.
const StatusVersion = "2.0"

// MaxHistory bounds Status.History; older entries are evicted first.
const MaxHistory = 100

// --- NullString ---

// NullString is a string that encodes "" as JSON null.
type NullString string

func (s NullString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *NullString) UnmarshalJSON(data []byte) error {
	var v *string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = ""
		return nil
	}
	*s = NullString(*v)
	return nil
}

// --- Core data structures ---

// FeatureState tracks one feature through the PDCA cycle. Keys not named
// here are kept in Extra and written back unchanged.
type FeatureState struct {
	Phase          Phase             `json:"phase"`
	PhaseNumber    int               `json:"phaseNumber"`
	MatchRate      *int              `json:"matchRate"`
	IterationCount int               `json:"iterationCount"`
	Requirements   []any             `json:"requirements"`
	Documents      map[string]any    `json:"documents"`
	Tasks          map[string]string `json:"tasks,omitempty"`
	CurrentTaskID  string            `json:"currentTaskId,omitempty"`
	Timestamps     map[string]string `json:"timestamps"`

	LastFile      string `json:"lastFile,omitempty"`
	PreviousPhase Phase  `json:"previousPhase,omitempty"`
	AutoAdvanced  bool   `json:"autoAdvanced,omitempty"`
	AnalysisDoc   string `json:"analysisDoc,omitempty"`

	Extra map[string]any `json:"-"`
}

// PhaseRecord is one completed development-pipeline phase.
type PhaseRecord struct {
	Phase       int    `json:"phase"`
	CompletedAt string `json:"completedAt"`
}

// PipelineState is the 9-phase development pipeline position.
type PipelineState struct {
	CurrentPhase int           `json:"currentPhase"`
	Level        Level         `json:"level"`
	PhaseHistory []PhaseRecord `json:"phaseHistory"`
}

// SessionInfo describes the host session that last touched the document.
type SessionInfo struct {
	StartedAt           string `json:"startedAt"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
	LastActivity        string `json:"lastActivity"`
	LastSkill           string `json:"lastSkill,omitempty"`
	LastAgent           string `json:"lastAgent,omitempty"`
}

// HistoryEntry is a free-form log record: {timestamp, feature, phase, action, ...}.
type HistoryEntry map[string]any

// Status is the root document persisted as docs/.pdca-status.json.
type Status struct {
	Version        string                   `json:"version"`
	LastUpdated    string                   `json:"lastUpdated"`
	ActiveFeatures []string                 `json:"activeFeatures"`
	PrimaryFeature NullString               `json:"primaryFeature"`
	Features       map[string]*FeatureState `json:"features"`
	Pipeline       PipelineState            `json:"pipeline"`
	Session        SessionInfo              `json:"session"`
	History        []HistoryEntry           `json:"history"`

	Extra map[string]any `json:"-"`
}

// NewStatus returns the default v2.0 document.
func NewStatus() *Status {
	now := Now()
	return &Status{
		Version:        StatusVersion,
		LastUpdated:    now,
		ActiveFeatures: []string{},
		Features:       map[string]*FeatureState{},
		Pipeline:       PipelineState{CurrentPhase: 1, Level: LevelDynamic, PhaseHistory: []PhaseRecord{}},
		Session:        SessionInfo{StartedAt: now, LastActivity: now},
		History:        []HistoryEntry{},
	}
}

// newFeature returns a FeatureState freshly started in phase.
func newFeature(phase Phase) *FeatureState {
	return &FeatureState{
		Phase:        phase,
		PhaseNumber:  PhaseNumber(phase),
		Requirements: []any{},
		Documents:    map[string]any{},
		Timestamps:   map[string]string{"started": Now()},
	}
}

// IsActive reports whether feature is in the active set.
func (s *Status) IsActive(feature string) bool {
	for _, f := range s.ActiveFeatures {
		if f == feature {
			return true
		}
	}
	return false
}

// Activate appends feature to the active set if missing.
func (s *Status) Activate(feature string) {
	if !s.IsActive(feature) {
		s.ActiveFeatures = append(s.ActiveFeatures, feature)
	}
}

// Deactivate removes feature from the active set. When it was the
// primary, the first remaining active feature becomes primary.
func (s *Status) Deactivate(feature string) {
	kept := s.ActiveFeatures[:0]
	for _, f := range s.ActiveFeatures {
		if f != feature {
			kept = append(kept, f)
		}
	}
	s.ActiveFeatures = kept
	if string(s.PrimaryFeature) == feature {
		s.PrimaryFeature = ""
		if len(kept) > 0 {
			s.PrimaryFeature = NullString(kept[0])
		}
	}
}

// AppendHistory adds entry stamped with the current time and evicts the
// oldest entries beyond MaxHistory.
func (s *Status) AppendHistory(entry HistoryEntry) {
	rec := HistoryEntry{"timestamp": Now()}
	for k, v := range entry {
		rec[k] = v
	}
	s.History = append(s.History, rec)
	if over := len(s.History) - MaxHistory; over > 0 {
		s.History = append([]HistoryEntry(nil), s.History[over:]...)
	}
}

// FeatureNames returns every tracked feature, sorted.
func (s *Status) FeatureNames() []string {
	names := make([]string, 0, len(s.Features))
	for name := range s.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the document through its JSON form.
func (s *Status) Clone() *Status {
	data, err := json.Marshal(s)
	if err != nil {
		return NewStatus()
	}
	var out Status
	if err := json.Unmarshal(data, &out); err != nil {
		return NewStatus()
	}
	return &out
}

// --- JSON with preserved unknown keys ---

var featureKeys = knownKeys(
	"phase", "phaseNumber", "matchRate", "iterationCount", "requirements",
	"documents", "tasks", "currentTaskId", "timestamps",
	"lastFile", "previousPhase", "autoAdvanced", "analysisDoc",
)

var statusKeys = knownKeys(
	"version", "lastUpdated", "activeFeatures", "primaryFeature",
	"features", "pipeline", "session", "history",
)

type featureAlias FeatureState

func (f FeatureState) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(featureAlias(f), f.Extra)
}

func (f *FeatureState) UnmarshalJSON(data []byte) error {
	var a featureAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extraKeys(data, featureKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*f = FeatureState(a)
	return nil
}

type statusAlias Status

func (s Status) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(statusAlias(s), s.Extra)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var a statusAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extraKeys(data, statusKeys)
	if err != nil {
		return err
	}
	a.Extra = extra
	*s = Status(a)
	if s.Features == nil {
		s.Features = map[string]*FeatureState{}
	}
	if s.ActiveFeatures == nil {
		s.ActiveFeatures = []string{}
	}
	return nil
}

func knownKeys(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func extraKeys(data []byte, known map[string]bool) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]any
	for k, v := range all {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = map[string]any{}
		}
		extra[k] = v
	}
	return extra, nil
}

func marshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := m[k]; !ok {
			m[k] = val
		}
	}
	return json.Marshal(m)
}
