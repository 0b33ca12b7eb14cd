// Package config loads bkit.config.json (or bkit.config.toml) from the
// project and plugin roots and exposes dot-path lookups plus the typed
// Bkit defaults every other package reads.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bkit-dev/bkit/internal/platform"
)

const (
	// JSONFile is the primary configuration file name.
	JSONFile = "bkit.config.json"
	// TOMLFile is accepted when no JSON file is present in a directory.
	TOMLFile = "bkit.config.toml"
)

// Config is a parsed configuration document with dot-path accessors.
// A nil *Config behaves like an empty document.
type Config struct {
	data   map[string]any
	source string
}

// New wraps an already decoded document.
func New(data map[string]any) *Config {
	if data == nil {
		data = map[string]any{}
	}
	return &Config{data: data}
}

// Load reads the first configuration file found, project directory first,
// then plugin root. Missing files yield an empty config. A file that exists
// but cannot be parsed is skipped and reported through the returned error
// while the search continues.
func Load(env platform.Env) (*Config, error) {
	var errs []error
	for _, dir := range []string{env.ProjectDir, env.PluginRoot} {
		if dir == "" {
			continue
		}
		cfg, err := LoadDir(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cfg != nil {
			return cfg, errors.Join(errs...)
		}
	}
	return New(nil), errors.Join(errs...)
}

// LoadDir reads bkit.config.json or bkit.config.toml from dir.
// Returns nil, nil when neither exists.
func LoadDir(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, JSONFile)
	if data, err := os.ReadFile(jsonPath); err == nil {
		doc, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", jsonPath, err)
		}
		return &Config{data: doc, source: jsonPath}, nil
	}

	tomlPath := filepath.Join(dir, TOMLFile)
	if data, err := os.ReadFile(tomlPath); err == nil {
		doc := map[string]any{}
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", tomlPath, err)
		}
		return &Config{data: doc, source: tomlPath}, nil
	}
	return nil, nil
}

// ReadJSONFile decodes a JSON object from path. Used by the hierarchy
// for user-level config files.
func ReadJSONFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (map[string]any, error) {
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Source is the file the config was read from, or "" when empty.
func (c *Config) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Data returns the raw document.
func (c *Config) Data() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return c.data
}

// Get resolves a dot path such as "pdca.matchRateThreshold".
func (c *Config) Get(path string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return Lookup(c.data, path)
}

// Lookup walks a nested map along a dot path.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String returns the string at path or def.
func (c *Config) String(path, def string) string {
	if v, ok := c.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the number at path truncated to int, or def.
func (c *Config) Int(path string, def int) int {
	if v, ok := c.Get(path); ok {
		if f, ok := toFloat(v); ok {
			return int(f)
		}
	}
	return def
}

// Float returns the number at path or def.
func (c *Config) Float(path string, def float64) float64 {
	if v, ok := c.Get(path); ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return def
}

// Bool returns the boolean at path or def.
func (c *Config) Bool(path string, def bool) bool {
	if v, ok := c.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Strings returns the string list at path or def. Non-string items are skipped.
func (c *Config) Strings(path string, def []string) []string {
	v, ok := c.Get(path)
	if !ok {
		return def
	}
	return toStrings(v, def)
}

// Joined returns the list at path joined by spaces, or def when the
// value is not a list.
func (c *Config) Joined(path, def string) string {
	v, ok := c.Get(path)
	if !ok {
		return def
	}
	items, ok := v.([]any)
	if !ok {
		return def
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprint(it))
	}
	return strings.Join(parts, " ")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any, def []string) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return def
}
