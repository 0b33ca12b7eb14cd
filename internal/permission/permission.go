// Package permission resolves deny/ask/allow rules for tool invocations.
//
// Rules are keyed by tool name ("Bash") or by tool plus pattern
// ("Bash(rm -rf*)"). Patterns are tried longest first; "*" matches any run
// of characters, and a pattern containing "**" is matched as a path glob.
package permission

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bkit-dev/bkit/internal/config"
	"github.com/bkit-dev/bkit/internal/debuglog"
)

// Permission is a rule outcome.
type Permission string

const (
	Deny  Permission = "deny"
	Ask   Permission = "ask"
	Allow Permission = "allow"
)

var levels = map[Permission]int{Deny: 0, Ask: 1, Allow: 2}

// ConfigKey is the hierarchy key holding the rules.
const ConfigKey = "permissions"

// DefaultRules apply when no configuration defines permissions.
var DefaultRules = map[string]Permission{
	"Write":                   Allow,
	"Edit":                    Allow,
	"Read":                    Allow,
	"Bash":                    Allow,
	"Bash(rm -rf*)":           Deny,
	"Bash(rm -r*)":            Ask,
	"Bash(git push --force*)": Deny,
	"Bash(git reset --hard*)": Ask,
}

// IsValid reports whether p is a known permission.
func IsValid(p string) bool {
	_, ok := levels[Permission(p)]
	return ok
}

// Level returns the numeric rank of p; unknown values rank as allow.
func Level(p Permission) int {
	if n, ok := levels[p]; ok {
		return n
	}
	return levels[Allow]
}

// IsMoreRestrictive reports whether a ranks below b.
func IsMoreRestrictive(a, b Permission) bool {
	return Level(a) < Level(b)
}

// Manager checks tool invocations against a rule set.
type Manager struct {
	rules map[string]Permission
	log   *debuglog.Logger
}

// New builds a manager over rules. A nil or empty map uses DefaultRules.
func New(rules map[string]Permission, log *debuglog.Logger) *Manager {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if log == nil {
		log = debuglog.Nop()
	}
	return &Manager{rules: rules, log: log}
}

// FromHierarchy reads the "permissions" key of the merged configuration.
// Entries with an unknown permission are dropped.
func FromHierarchy(h *config.Hierarchy, log *debuglog.Logger) *Manager {
	raw, _ := h.Value(ConfigKey, nil).(map[string]any)
	rules := make(map[string]Permission, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok || !IsValid(s) {
			log.Log("Permission", "Ignoring invalid rule", map[string]any{"rule": k, "value": v})
			continue
		}
		rules[k] = Permission(s)
	}
	return New(rules, log)
}

// All returns a copy of the rule set.
func (m *Manager) All() map[string]Permission {
	out := make(map[string]Permission, len(m.rules))
	for k, v := range m.rules {
		out[k] = v
	}
	return out
}

// ToolRules returns the rules that mention tool.
func (m *Manager) ToolRules(tool string) map[string]Permission {
	out := map[string]Permission{}
	for k, v := range m.rules {
		if k == tool || strings.HasPrefix(k, tool+"(") {
			out[k] = v
		}
	}
	return out
}

// Check resolves the permission for tool invoked with input.
func (m *Manager) Check(tool, input string) Permission {
	var patterns []string
	for k := range m.rules {
		if strings.HasPrefix(k, tool+"(") && strings.HasSuffix(k, ")") {
			patterns = append(patterns, k)
		}
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})

	for _, p := range patterns {
		content := p[len(tool)+1 : len(p)-1]
		if matchPattern(content, input) {
			m.log.Log("Permission", "Pattern matched", map[string]any{
				"pattern": p, "toolInput": input, "permission": m.rules[p],
			})
			return m.rules[p]
		}
	}
	if perm, ok := m.rules[tool]; ok {
		return perm
	}
	return Allow
}

func matchPattern(pattern, input string) bool {
	if strings.Contains(pattern, "**") {
		ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(input))
		return err == nil && ok
	}
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("(?is)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(input)
}

// Verdict explains a ShouldBlock or RequiresConfirmation result.
type Verdict struct {
	Blocked              bool       `json:"blocked"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
	Permission           Permission `json:"permission"`
	Reason               string     `json:"reason,omitempty"`
}

// ShouldBlock reports a deny with its reason.
func (m *Manager) ShouldBlock(tool, input string) Verdict {
	p := m.Check(tool, input)
	v := Verdict{Permission: p}
	if p == Deny {
		v.Blocked = true
		v.Reason = fmt.Sprintf("%s action is denied by permission policy", tool)
	}
	return v
}

// RequiresConfirmation reports an ask.
func (m *Manager) RequiresConfirmation(tool, input string) Verdict {
	p := m.Check(tool, input)
	return Verdict{Permission: p, RequiresConfirmation: p == Ask}
}
