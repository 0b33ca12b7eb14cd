// Package templates picks the PDCA document template that fits the
// project level and gathers the variables a skill fills it with.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bkit-dev/bkit/internal/pdca"
	"github.com/bkit-dev/bkit/internal/platform"
)

// Types are the document kinds templates exist for.
var Types = []string{"plan", "design", "analysis", "report"}

// ErrNotFound is returned when no template file exists for a type.
var ErrNotFound = errors.New("template not found")

var timeNow = time.Now

// Dir returns the template directory: the plugin's templates/ when it
// exists, otherwise the project's.
func Dir(env platform.Env) string {
	plugin := env.PluginPath("templates")
	if info, err := os.Stat(plugin); err == nil && info.IsDir() {
		return plugin
	}
	return env.ProjectPath("templates")
}

// FileName is the level-specific file name for kind.
func FileName(kind string, level pdca.Level) string {
	switch strings.ToLower(string(level)) {
	case "starter":
		return kind + "-starter.template.md"
	case "enterprise":
		return kind + "-enterprise.template.md"
	}
	return kind + ".template.md"
}

// Select returns the template path for kind at level, falling back to
// the level-neutral template.
func Select(dir, kind string, level pdca.Level) (string, error) {
	for _, name := range []string{FileName(kind, level), kind + ".template.md"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s.template.md: %w", kind, ErrNotFound)
}

// Vars are the values a template is filled with.
type Vars struct {
	Template string `json:"template"`
	Level    string `json:"level"`
	Feature  string `json:"feature"`
	Date     string `json:"date"`
	Project  string `json:"project"`
	Version  string `json:"version"`
}

var titleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// ProjectInfo reads the project name and version from package.json,
// falling back to the first heading of CLAUDE.md for the name.
func ProjectInfo(root string) (name, version string) {
	if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		var pkg struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			name, version = pkg.Name, pkg.Version
		}
	}
	if name != "" {
		return name, version
	}
	if data, err := os.ReadFile(filepath.Join(root, "CLAUDE.md")); err == nil {
		if m := titleRe.FindSubmatch(data); m != nil {
			name = strings.TrimSpace(string(m[1]))
		}
	}
	return name, version
}

// Variables builds the fill-in values for feature's document.
func Variables(root, path, feature string, level pdca.Level) Vars {
	project, version := ProjectInfo(root)
	return Vars{
		Template: path,
		Level:    string(level),
		Feature:  feature,
		Date:     timeNow().UTC().Format("2006-01-02"),
		Project:  project,
		Version:  version,
	}
}
