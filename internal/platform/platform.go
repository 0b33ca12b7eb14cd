// Package platform detects which host runtime invoked bkit and resolves
// the plugin and project roots it works against.
package platform

import (
	"os"
	"path/filepath"
)

// Name identifies a host AI-assistant runtime.
type Name string

const (
	Claude  Name = "claude"
	Gemini  Name = "gemini"
	Unknown Name = "unknown"
)

// Env holds everything bkit derives from the process environment.
// It is resolved once per invocation and passed down explicitly.
type Env struct {
	Platform   Name
	PluginRoot string
	ProjectDir string
}

// lookupEnv is a package-level variable for testability.
var lookupEnv = os.Getenv

// Detect returns the host runtime based on well-known environment variables.
// Gemini markers win over Claude markers.
func Detect() Name {
	if lookupEnv("GEMINI_API_KEY") != "" || lookupEnv("GOOGLE_AI_API_KEY") != "" {
		return Gemini
	}
	if lookupEnv("CLAUDE_PROJECT_DIR") != "" || lookupEnv("ANTHROPIC_API_KEY") != "" {
		return Claude
	}
	return Unknown
}

// Resolve builds an Env from the current process.
func Resolve() Env {
	return Env{
		Platform:   Detect(),
		PluginRoot: pluginRoot(),
		ProjectDir: projectDir(),
	}
}

func pluginRoot() string {
	for _, key := range []string{"GEMINI_PLUGIN_ROOT", "CLAUDE_PLUGIN_ROOT"} {
		if v := lookupEnv(key); v != "" {
			return v
		}
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func projectDir() string {
	for _, key := range []string{"GEMINI_PROJECT_DIR", "CLAUDE_PROJECT_DIR"} {
		if v := lookupEnv(key); v != "" {
			return v
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// IsGemini reports whether the host is Gemini CLI.
func (e Env) IsGemini() bool { return e.Platform == Gemini }

// IsClaude reports whether the host is Claude Code.
func (e Env) IsClaude() bool { return e.Platform == Claude }

// PluginPath joins parts onto the plugin root.
func (e Env) PluginPath(parts ...string) string {
	return filepath.Join(append([]string{e.PluginRoot}, parts...)...)
}

// ProjectPath joins parts onto the project directory.
func (e Env) ProjectPath(parts ...string) string {
	return filepath.Join(append([]string{e.ProjectDir}, parts...)...)
}

// TemplatePath returns the path of a named template shipped with the plugin.
func (e Env) TemplatePath(name string) string {
	return e.PluginPath("templates", name)
}

// ConfigDirName returns the per-platform dot directory (".claude" or ".gemini").
func (e Env) ConfigDirName() string {
	if e.IsGemini() {
		return ".gemini"
	}
	return ".claude"
}
