// Package skills reads SKILL.md and agent markdown frontmatter, resolves
// their imports, and suggests what to run before and after a skill.
package skills

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterRe = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n(.*)$`)

// Split separates the YAML block from the markdown body. ok is false when
// content has no frontmatter.
func Split(content string) (yamlBlock, body string, ok bool) {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return "", content, false
	}
	return m[1], m[2], true
}

// StringList accepts either a YAML sequence or a comma-separated scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(n.Value, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		*l = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	}
	return fmt.Errorf("line %d: expected list or string", n.Line)
}

// Config is the frontmatter of a skill or agent file.
type Config struct {
	Name          string            `yaml:"name" json:"name"`
	Description   string            `yaml:"description" json:"description"`
	Imports       StringList        `yaml:"imports" json:"imports"`
	Agent         string            `yaml:"agent" json:"agent,omitempty"`
	Agents        map[string]string `yaml:"agents" json:"agents,omitempty"`
	AllowedTools  StringList        `yaml:"allowed-tools" json:"allowedTools"`
	UserInvocable bool              `yaml:"user-invocable" json:"userInvocable"`
	ArgumentHint  string            `yaml:"argument-hint" json:"argumentHint,omitempty"`
	NextSkill     string            `yaml:"next-skill" json:"nextSkill,omitempty"`
	PdcaPhase     string            `yaml:"pdca-phase" json:"pdcaPhase,omitempty"`
	TaskTemplate  string            `yaml:"task-template" json:"taskTemplate,omitempty"`
	SkillsPreload StringList        `yaml:"skills_preload" json:"skillsPreload"`
	Hooks         map[string]any    `yaml:"hooks" json:"hooks,omitempty"`
	Context       string            `yaml:"context" json:"context,omitempty"`
	MergeResult   *bool             `yaml:"mergeResult" json:"mergeResult,omitempty"`
	Model         string            `yaml:"model" json:"model,omitempty"`
	Tools         StringList        `yaml:"tools" json:"tools,omitempty"`

	Body string `yaml:"-" json:"-"`
}

// ParseFrontmatter decodes the frontmatter of content. Content without
// frontmatter yields an empty Config whose Body is the whole input.
func ParseFrontmatter(content string) (*Config, error) {
	block, body, ok := Split(content)
	cfg := &Config{Body: body}
	if !ok {
		return cfg, nil
	}
	if err := yaml.Unmarshal([]byte(block), cfg); err != nil {
		return &Config{Body: content}, fmt.Errorf("parsing frontmatter: %w", err)
	}
	cfg.Body = body
	return cfg, nil
}

// IsFork reports whether the skill runs in a forked context.
func (c *Config) IsFork() bool {
	return c != nil && c.Context == "fork"
}

// ShouldMerge reports whether a forked run merges back; the default is yes.
func (c *Config) ShouldMerge() bool {
	return c == nil || c.MergeResult == nil || *c.MergeResult
}

// Bindings maps actions to agents. A single "agent:" becomes the default
// binding.
type Bindings struct {
	Agents map[string]string
	Multi  bool
}

// Bindings returns the agent bindings of c.
func (c *Config) Bindings() Bindings {
	if c == nil {
		return Bindings{Agents: map[string]string{}}
	}
	if len(c.Agents) > 0 {
		out := make(map[string]string, len(c.Agents))
		for k, v := range c.Agents {
			out[k] = v
		}
		return Bindings{Agents: out, Multi: true}
	}
	if c.Agent != "" {
		return Bindings{Agents: map[string]string{"default": c.Agent}}
	}
	return Bindings{Agents: map[string]string{}}
}

// For returns the agent bound to action, falling back to the default.
func (b Bindings) For(action string) string {
	if a := b.Agents[action]; a != "" {
		return a
	}
	return b.Agents["default"]
}
