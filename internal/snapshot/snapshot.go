// Package snapshot keeps copies of the PDCA status taken before the host
// compacts its context.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bkit-dev/bkit/internal/lockfile"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// Dir is the snapshot directory relative to the project root.
const Dir = "docs/.pdca-snapshots"

// DefaultKeep is how many snapshots Prune leaves behind.
const DefaultKeep = 10

const (
	prefix = "snapshot-"
	suffix = ".json"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Snapshot is one saved copy of the status document.
type Snapshot struct {
	Timestamp string       `json:"timestamp"`
	Reason    string       `json:"reason"`
	Status    *pdca.Status `json:"status"`
}

// Summary is the part of a snapshot echoed back to the host.
type Summary struct {
	ActiveFeatures []string       `json:"activeFeatures"`
	PrimaryFeature string         `json:"primaryFeature"`
	Phases         []FeaturePhase `json:"currentPhases"`
}

// FeaturePhase is one feature's position at snapshot time.
type FeaturePhase struct {
	Feature   string     `json:"feature"`
	Phase     pdca.Phase `json:"phase"`
	MatchRate *int       `json:"matchRate,omitempty"`
}

// Store manages the snapshot directory of one project.
type Store struct {
	dir string
}

// New returns the snapshot store under root.
func New(root string) *Store {
	return &Store{dir: filepath.Join(root, Dir)}
}

// Dir returns the absolute snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Take writes status to snapshot-<unix ms>.json and prunes old snapshots.
// It returns the written path.
func (s *Store) Take(status *pdca.Status, reason string) (string, error) {
	if reason == "" {
		reason = "compaction"
	}
	now := timeNow()
	snap := Snapshot{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Reason:    reason,
		Status:    status,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s%d%s", prefix, now.UnixMilli(), suffix))
	if err := lockfile.WriteFile(path, data); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if _, err := s.Prune(DefaultKeep); err != nil {
		return path, err
	}
	return path, nil
}

// List returns snapshot file names, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, prefix) && strings.HasSuffix(n, suffix) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes all but the newest keep snapshots and returns how many
// were removed.
func (s *Store) Prune(keep int) (int, error) {
	names, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := keep; i < len(names); i++ {
		if err := os.Remove(filepath.Join(s.dir, names[i])); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("pruning %s: %w", names[i], err)
		}
		removed++
	}
	return removed, nil
}

// Load reads a snapshot by file name.
func (s *Store) Load(name string) (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", name, err)
	}
	return &snap, nil
}

// Summarize extracts what the host needs to restore its PDCA context.
func Summarize(status *pdca.Status) Summary {
	sum := Summary{ActiveFeatures: []string{}, Phases: []FeaturePhase{}}
	if status == nil {
		return sum
	}
	sum.ActiveFeatures = append(sum.ActiveFeatures, status.ActiveFeatures...)
	sum.PrimaryFeature = string(status.PrimaryFeature)
	for _, name := range status.FeatureNames() {
		fs := status.Features[name]
		sum.Phases = append(sum.Phases, FeaturePhase{Feature: name, Phase: fs.Phase, MatchRate: fs.MatchRate})
	}
	return sum
}

// Context renders the one-line note sent back after compaction.
func (s Summary) Context() string {
	active := strings.Join(s.ActiveFeatures, ", ")
	if active == "" {
		active = "none"
	}
	primary := s.PrimaryFeature
	if primary == "" {
		primary = "none"
	}
	return fmt.Sprintf("PDCA State preserved. Active: %s. Primary: %s.", active, primary)
}
