// Package memory is a small key/value store that survives across sessions.
// It backs session counters, onboarding state and anything a hook wants to
// remember between invocations.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/lockfile"
)

// FileName is the memory path relative to the project root.
const FileName = "docs/.bkit-memory.json"

// Well-known keys.
const (
	KeySessionCount = "sessionCount"
	KeyLastSession  = "lastSession"
	KeyPlatform     = "platform"
)

// Store is the memory document of one project. The loaded document is
// cached until Invalidate; every write re-reads the file under the lock.
type Store struct {
	path string
	log  *debuglog.Logger

	mu    sync.Mutex
	cache map[string]any
}

// New creates a store rooted at projectRoot.
func New(projectRoot string, log *debuglog.Logger) *Store {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Store{path: filepath.Join(projectRoot, filepath.FromSlash(FileName)), log: log}
}

// Path returns the memory file path.
func (s *Store) Path() string { return s.path }

func (s *Store) read() map[string]any {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Log("MemoryStore", "Failed to load memory", map[string]any{"error": err.Error()})
		}
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		s.log.Log("MemoryStore", "Failed to load memory", map[string]any{"error": fmt.Sprint(err)})
		return map[string]any{}
	}
	return m
}

func (s *Store) load() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		s.cache = s.read()
	}
	return s.cache
}

// modify applies fn to a fresh copy of the file under the lock and saves
// it when fn returns true.
func (s *Store) modify(fn func(map[string]any) bool) error {
	err := lockfile.With(s.path, func() error {
		m := s.read()
		if !fn(m) {
			s.mu.Lock()
			s.cache = m
			s.mu.Unlock()
			return nil
		}
		if err := lockfile.WriteJSON(s.path, m); err != nil {
			return err
		}
		s.mu.Lock()
		s.cache = m
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.log.Log("MemoryStore", "Failed to save memory", map[string]any{"error": err.Error()})
		return fmt.Errorf("saving memory: %w", err)
	}
	s.log.Log("MemoryStore", "Memory saved", nil)
	return nil
}

// Get returns the value of key, or def.
func (s *Store) Get(key string, def any) any {
	if v, ok := s.load()[key]; ok {
		return v
	}
	return def
}

// Int returns a numeric value of key, or def.
func (s *Store) Int(key string, def int) int {
	switch v := s.Get(key, nil).(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Has reports whether key is set.
func (s *Store) Has(key string) bool {
	_, ok := s.load()[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	m := s.load()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of the stored values.
func (s *Store) All() map[string]any {
	m := s.load()
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Set stores value under key.
func (s *Store) Set(key string, value any) error {
	return s.modify(func(m map[string]any) bool {
		m[key] = value
		return true
	})
}

// Update merges values into the store.
func (s *Store) Update(values map[string]any) error {
	return s.modify(func(m map[string]any) bool {
		for k, v := range values {
			m[k] = v
		}
		return true
	})
}

// UpdateObject applies fn to the object stored under key, creating it
// when absent or not an object, and saves the result.
func (s *Store) UpdateObject(key string, fn func(obj map[string]any)) error {
	return s.modify(func(m map[string]any) bool {
		obj, ok := m[key].(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		fn(obj)
		m[key] = obj
		return true
	})
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) (bool, error) {
	existed := false
	err := s.modify(func(m map[string]any) bool {
		if _, ok := m[key]; !ok {
			return false
		}
		delete(m, key)
		existed = true
		return true
	})
	return existed, err
}

// Clear empties the store.
func (s *Store) Clear() error {
	err := s.modify(func(m map[string]any) bool {
		for k := range m {
			delete(m, k)
		}
		return true
	})
	if err == nil {
		s.log.Log("MemoryStore", "Memory cleared", nil)
	}
	return err
}

// Invalidate drops the cached document so the next read hits the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// Session is the lastSession record written at SessionStart.
type Session struct {
	ID        string `json:"id"`
	StartedAt string `json:"startedAt"`
	Platform  string `json:"platform"`
	Level     string `json:"level"`
}

// RecordSession bumps sessionCount and stores sess as lastSession in one
// write. Returns the new count.
func (s *Store) RecordSession(sess Session) (int, error) {
	count := 0
	err := s.modify(func(m map[string]any) bool {
		if n, ok := m[KeySessionCount].(float64); ok {
			count = int(n)
		}
		count++
		m[KeySessionCount] = count
		m[KeyLastSession] = map[string]any{
			"id":        sess.ID,
			"startedAt": sess.StartedAt,
			"platform":  sess.Platform,
			"level":     sess.Level,
		}
		m[KeyPlatform] = sess.Platform
		return true
	})
	return count, err
}
