// Package fork gives a skill or agent an isolated copy of the PDCA status
// that can later be merged back field by field or thrown away.
package fork

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// DefaultFields are merged when neither the fork nor the caller names any.
var DefaultFields = []string{"features", "history"}

// ErrNotFound is returned for an unknown fork ID.
var ErrNotFound = errors.New("fork not found")

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Options configure Fork.
type Options struct {
	// SkipMerge discards the fork's changes on Merge.
	SkipMerge     bool
	IncludeFields []string
}

// Metadata describes a fork without its state.
type Metadata struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CreatedAt     string   `json:"createdAt"`
	MergeResult   bool     `json:"mergeResult"`
	IncludeFields []string `json:"includeFields"`
	Merged        bool     `json:"merged"`
}

type entry struct {
	meta  Metadata
	state map[string]any
}

// Registry holds the forks of one session.
type Registry struct {
	store *pdca.Store
	log   *debuglog.Logger

	mu      sync.Mutex
	forks   map[string]*entry
	counter int
}

// NewRegistry creates an empty registry over store.
func NewRegistry(store *pdca.Store, log *debuglog.Logger) *Registry {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Registry{store: store, log: log, forks: map[string]*entry{}}
}

// toMap round-trips v through JSON into a generic document.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if string(data) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Fork snapshots the current status for name and returns the fork ID
// ("fork-<n>-<unix ms>") and the forked state.
func (r *Registry) Fork(name string, opts Options) (string, map[string]any, error) {
	st, _ := r.store.Get(true)
	state, err := toMap(st)
	if err != nil {
		return "", nil, fmt.Errorf("copying status: %w", err)
	}

	fields := opts.IncludeFields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	r.mu.Lock()
	r.counter++
	id := fmt.Sprintf("fork-%d-%d", r.counter, timeNow().UnixMilli())
	r.forks[id] = &entry{
		meta: Metadata{
			ID:            id,
			Name:          name,
			CreatedAt:     pdca.Now(),
			MergeResult:   !opts.SkipMerge,
			IncludeFields: append([]string(nil), fields...),
		},
		state: state,
	}
	r.mu.Unlock()

	r.log.Log("ContextFork", "Context forked", map[string]any{"forkId": id, "name": name, "mergeResult": !opts.SkipMerge})
	return id, state, nil
}

// Get returns the forked state, or nil.
func (r *Registry) Get(id string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.forks[id]; ok {
		return e.state
	}
	return nil
}

// Has reports whether id is a live fork.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.forks[id]
	return ok
}

// Update overwrites top-level keys of the forked state.
func (r *Registry) Update(id string, updates map[string]any) error {
	r.mu.Lock()
	e, ok := r.forks[id]
	if ok {
		for k, v := range updates {
			e.state[k] = v
		}
	}
	r.mu.Unlock()
	if !ok {
		r.log.Log("ContextFork", "Fork not found", map[string]any{"forkId": id})
		return ErrNotFound
	}
	r.log.Log("ContextFork", "Fork updated", map[string]any{"forkId": id})
	return nil
}

// UpdateFeature sets keys on one feature of the forked state. A missing
// feature is created, added to activeFeatures and made primary when the
// fork has none.
func (r *Registry) UpdateFeature(id, feature string, values map[string]any) error {
	r.mu.Lock()
	e, ok := r.forks[id]
	if ok {
		features, _ := e.state["features"].(map[string]any)
		if features == nil {
			features = map[string]any{}
			e.state["features"] = features
		}
		fs, _ := features[feature].(map[string]any)
		if fs == nil {
			fs = map[string]any{
				"requirements": []any{},
				"documents":    map[string]any{},
				"timestamps":   map[string]any{"started": pdca.Now()},
			}
			features[feature] = fs
		}
		for k, v := range values {
			fs[k] = v
		}
		if ts, ok := fs["timestamps"].(map[string]any); ok {
			ts["lastUpdated"] = pdca.Now()
		}

		active, _ := e.state["activeFeatures"].([]any)
		if !slices.Contains(active, any(feature)) {
			e.state["activeFeatures"] = append(active, feature)
		}
		if p, _ := e.state["primaryFeature"].(string); p == "" {
			e.state["primaryFeature"] = feature
		}
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	r.log.Log("ContextFork", "Fork feature updated", map[string]any{"forkId": id, "feature": feature})
	return nil
}

// Merge writes the fork's fields back into the status document and drops
// the fork. Arrays are unioned with value deduplication, objects are merged
// key-wise and scalars are replaced. fields overrides the fork's own list.
// A fork created with SkipMerge is dropped without writing and Merge
// returns nil, nil.
func (r *Registry) Merge(id string, fields []string) (*pdca.Status, error) {
	r.mu.Lock()
	e, ok := r.forks[id]
	if ok {
		delete(r.forks, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !e.meta.MergeResult {
		r.log.Log("ContextFork", "Merge skipped (mergeResult: false)", map[string]any{"forkId": id})
		return nil, nil
	}
	if len(fields) == 0 {
		fields = e.meta.IncludeFields
	}

	if err := r.store.InitIfNotExists(); err != nil {
		return nil, err
	}
	var merged *pdca.Status
	var mergeErr error
	err := r.store.Modify(func(st *pdca.Status) bool {
		current, err := toMap(st)
		if err != nil {
			mergeErr = err
			return false
		}
		for _, f := range fields {
			current[f] = mergeField(current[f], e.state[f])
		}
		data, err := json.Marshal(current)
		if err != nil {
			mergeErr = err
			return false
		}
		var out pdca.Status
		if err := json.Unmarshal(data, &out); err != nil {
			mergeErr = err
			return false
		}
		if n := len(out.History); n > pdca.MaxHistory {
			out.History = out.History[n-pdca.MaxHistory:]
		}
		*st = out
		merged = st
		return true
	})
	if err == nil {
		err = mergeErr
	}
	if err != nil {
		return nil, fmt.Errorf("merging fork %s: %w", id, err)
	}

	r.log.Log("ContextFork", "Context merged", map[string]any{"forkId": id, "mergedFields": fields})
	return merged, nil
}

func mergeField(current, forked any) any {
	switch f := forked.(type) {
	case nil:
		return current
	case []any:
		cur, _ := current.([]any)
		out := make([]any, 0, len(cur)+len(f))
		seen := map[string]bool{}
		for _, v := range append(append([]any{}, cur...), f...) {
			key, err := json.Marshal(v)
			if err == nil && seen[string(key)] {
				continue
			}
			seen[string(key)] = true
			out = append(out, v)
		}
		return out
	case map[string]any:
		out := map[string]any{}
		if cur, ok := current.(map[string]any); ok {
			for k, v := range cur {
				out[k] = v
			}
		}
		for k, v := range f {
			out[k] = v
		}
		return out
	default:
		return forked
	}
}

// Discard drops a fork without merging.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	delete(r.forks, id)
	r.mu.Unlock()
	r.log.Log("ContextFork", "Fork discarded", map[string]any{"forkId": id})
}

// Active lists live forks ordered by ID.
func (r *Registry) Active() []Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Metadata, 0, len(r.forks))
	for _, e := range r.forks {
		out = append(out, e.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Metadata returns a fork's metadata, or nil.
func (r *Registry) Metadata(id string) *Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forks[id]
	if !ok {
		return nil
	}
	m := e.meta
	return &m
}

// Clear drops every fork.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.forks)
	r.forks = map[string]*entry{}
	r.mu.Unlock()
	r.log.Log("ContextFork", "All forks cleared", map[string]any{"count": n})
}
