package skills

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bkit-dev/bkit/internal/debuglog"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// ConfigCacheTTL bounds how long a parsed SKILL.md is reused.
const ConfigCacheTTL = 30 * time.Second

// SkillFile is the file that holds a skill's frontmatter, relative to the
// plugin root.
func SkillFile(name string) string {
	return filepath.Join("skills", name, "SKILL.md")
}

type cachedConfig struct {
	cfg *Config
	at  time.Time
}

// Loader reads skill configs from the plugin root.
type Loader struct {
	pluginRoot string
	resolver   *Resolver
	store      *pdca.Store
	log        *debuglog.Logger

	mu    sync.Mutex
	cache map[string]cachedConfig
}

// NewLoader creates a loader. store may be nil when no task info is needed.
func NewLoader(pluginRoot string, resolver *Resolver, store *pdca.Store, log *debuglog.Logger) *Loader {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Loader{
		pluginRoot: pluginRoot,
		resolver:   resolver,
		store:      store,
		log:        log,
		cache:      map[string]cachedConfig{},
	}
}

// Config returns the parsed frontmatter of a skill, or nil when the skill
// has no SKILL.md. Name defaults to the skill directory name.
func (l *Loader) Config(name string) *Config {
	l.mu.Lock()
	if c, ok := l.cache[name]; ok && timeNow().Sub(c.at) < ConfigCacheTTL {
		l.mu.Unlock()
		return c.cfg
	}
	l.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(l.pluginRoot, SkillFile(name)))
	if err != nil {
		l.log.Log("SkillOrchestrator", "SKILL.md not found", map[string]any{"skillName": name})
		return nil
	}
	cfg, err := ParseFrontmatter(string(data))
	if err != nil {
		l.log.Log("SkillOrchestrator", "Invalid frontmatter", map[string]any{"skillName": name, "error": err.Error()})
	}
	if cfg.Name == "" {
		cfg.Name = name
	}

	l.mu.Lock()
	l.cache[name] = cachedConfig{cfg: cfg, at: timeNow()}
	l.mu.Unlock()
	return cfg
}

// AgentForAction returns the agent bound to action for a skill, or "".
func (l *Loader) AgentForAction(skill, action string) string {
	return l.Config(skill).Bindings().For(action)
}

// LinkedAgents lists the distinct agents a skill binds, sorted.
func (l *Loader) LinkedAgents(skill string) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range l.Config(skill).Bindings().Agents {
		if a != "" && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// IsMultiBinding reports whether a skill uses an "agents:" map.
func (l *Loader) IsMultiBinding(skill string) bool {
	return l.Config(skill).Bindings().Multi
}

// TaskInfo is the task a skill's task-template produces for a feature.
type TaskInfo struct {
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	ActiveForm  string   `json:"activeForm"`
	BlockedBy   []string `json:"blockedBy"`
	PdcaPhase   string   `json:"pdcaPhase,omitempty"`
}

// PreResult is returned before a skill runs.
type PreResult struct {
	Skill     string    `json:"skill"`
	Templates string    `json:"templates,omitempty"`
	Errors    []string  `json:"errors,omitempty"`
	Task      *TaskInfo `json:"taskInfo,omitempty"`
	Agents    []string  `json:"agents,omitempty"`
}

// Pre loads a skill's imports and, when the skill has a task-template and
// feature is set, describes the task to create.
func (l *Loader) Pre(name, feature string) (*PreResult, error) {
	cfg := l.Config(name)
	if cfg == nil {
		return nil, fmt.Errorf("skill %q not found", name)
	}
	res := &PreResult{Skill: cfg.Name, Agents: l.LinkedAgents(name)}

	if len(cfg.Imports) > 0 && l.resolver != nil {
		res.Templates, res.Errors = l.resolver.Resolve(cfg.Imports, filepath.Join(l.pluginRoot, SkillFile(name)))
	}

	if cfg.TaskTemplate != "" && feature != "" {
		subject := strings.ReplaceAll(cfg.TaskTemplate, "{feature}", feature)
		label := cfg.PdcaPhase
		if label == "" {
			label = "task"
		}
		res.Task = &TaskInfo{
			Subject:     subject,
			Description: fmt.Sprintf("PDCA %s for %s", label, feature),
			ActiveForm:  subject + " in progress",
			BlockedBy:   l.blockedBy(pdca.Phase(cfg.PdcaPhase), feature),
			PdcaPhase:   cfg.PdcaPhase,
		}
	}

	l.log.Log("SkillOrchestrator", "Pre-orchestration complete", map[string]any{"skillName": name, "hasTask": res.Task != nil})
	return res, nil
}

// blockedBy returns the task ID recorded for the phase before phase.
func (l *Loader) blockedBy(phase pdca.Phase, feature string) []string {
	if l.store == nil || phase == "" {
		return []string{}
	}
	prev := pdca.PreviousPhase(phase)
	if prev == "" {
		return []string{}
	}
	fs := l.store.Feature(feature)
	if fs == nil {
		return []string{}
	}
	if id := fs.Tasks[string(prev)]; id != "" {
		return []string{id}
	}
	return []string{}
}

// NextSkill points at the skill to run next.
type NextSkill struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// PostResult holds the suggestions after a skill finishes.
type PostResult struct {
	Skill          string     `json:"skill"`
	NextSkill      *NextSkill `json:"nextSkill,omitempty"`
	SuggestedAgent string     `json:"suggestedAgent,omitempty"`
	Message        string     `json:"message,omitempty"`
}

// Empty reports whether there is nothing to suggest.
func (p *PostResult) Empty() bool {
	return p == nil || (p.NextSkill == nil && p.SuggestedAgent == "")
}

// Post returns what to suggest after a skill completes.
func (l *Loader) Post(name string) *PostResult {
	cfg := l.Config(name)
	if cfg == nil {
		return &PostResult{Skill: name}
	}
	res := &PostResult{Skill: cfg.Name}
	if cfg.NextSkill != "" {
		res.NextSkill = &NextSkill{Name: cfg.NextSkill, Message: NextStepMessage(cfg.NextSkill)}
	}
	switch pdca.Phase(cfg.PdcaPhase) {
	case pdca.PhaseDo:
		res.SuggestedAgent = "gap-detector"
		res.Message = "Run gap analysis once the implementation is done."
	case pdca.PhaseCheck:
		res.SuggestedAgent = "pdca-iterator"
		res.Message = "Run automatic improvement if the match rate is below 90%."
	}
	return res
}

var nextStepMessages = map[string]string{
	"phase-1-schema":         "Next: define terminology and data structures with /phase-1-schema.",
	"phase-2-convention":     "Next: set coding conventions with /phase-2-convention.",
	"phase-3-mockup":         "Next: build UI mockups with /phase-3-mockup.",
	"phase-4-api":            "Next: design and implement APIs with /phase-4-api.",
	"phase-5-design-system":  "Next: build the design system with /phase-5-design-system.",
	"phase-6-ui-integration": "Next: integrate the UI with the APIs using /phase-6-ui-integration.",
	"phase-7-seo-security":   "Next: review SEO and security with /phase-7-seo-security.",
	"phase-8-review":         "Next: run the code review with /phase-8-review.",
	"phase-9-deployment":     "Next: deploy to production with /phase-9-deployment.",
}

// NextStepMessage describes running the named skill next.
func NextStepMessage(skill string) string {
	if m, ok := nextStepMessages[skill]; ok {
		return m
	}
	return "Next step: " + skill
}

// ForkEnabled lists the skills whose frontmatter declares "context: fork".
func (l *Loader) ForkEnabled() []string {
	matches, err := doublestar.Glob(os.DirFS(l.pluginRoot), "skills/*/SKILL.md")
	if err != nil {
		return nil
	}
	var out []string
	for _, m := range matches {
		name := path.Base(path.Dir(m))
		if l.Config(name).IsFork() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ClearCache drops every cached config.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = map[string]cachedConfig{}
	l.mu.Unlock()
}

// CacheEntries lists the cached skill names in sorted order.
func (l *Loader) CacheEntries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.cache))
	for k := range l.cache {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
