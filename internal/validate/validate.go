// Package validate checks a plugin tree: required files, plugin.json,
// and the frontmatter of every skill, agent and command.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/bkit-dev/bkit/internal/skills"
)

// RequiredFiles must exist at the plugin root.
var RequiredFiles = []string{"plugin.json", "CLAUDE.md", "README.md"}

// RequiredDirs must exist at the plugin root.
var RequiredDirs = []string{"skills", "agents", "commands"}

// Counts tallies one kind of checked item.
type Counts struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// Stats is the full validation tally.
type Stats struct {
	Skills   Counts   `json:"skills"`
	Agents   Counts   `json:"agents"`
	Commands Counts   `json:"commands"`
	Hooks    Counts   `json:"hooks"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Report is the outcome of Run.
type Report struct {
	Valid bool  `json:"valid"`
	Stats Stats `json:"stats"`
	// Notes are the per-item OK lines shown in verbose mode.
	Notes []string `json:"-"`
	// Plugin is "name vVersion" when plugin.json is valid.
	Plugin string `json:"-"`
}

// Options configure a run.
type Options struct {
	// KnownHandler reports whether a "bkit hook run <name>" target exists.
	// Nil skips those references.
	KnownHandler func(name string) bool
	// Concurrency caps parallel file checks; zero means 8.
	Concurrency int
}

var (
	scriptRefRe  = regexp.MustCompile(`\$\{CLAUDE_PLUGIN_ROOT\}/scripts/([^\s"']+)`)
	handlerRefRe = regexp.MustCompile(`bkit hook run ([\w-]+)`)
)

type kind int

const (
	kindSkill kind = iota
	kindAgent
	kindCommand
)

// fileResult is the verdict on one markdown file.
type fileResult struct {
	path     string
	kind     kind
	valid    bool
	errors   []string
	warnings []string
	notes    []string
	hooks    Counts
}

// Run validates the plugin at root.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	r := &Report{Stats: Stats{Errors: []string{}, Warnings: []string{}}}

	for _, f := range RequiredFiles {
		if _, err := os.Stat(filepath.Join(root, f)); err != nil {
			r.errorf("Missing required file: %s", f)
		} else {
			r.Notes = append(r.Notes, "OK: "+f)
		}
	}
	for _, d := range RequiredDirs {
		if info, err := os.Stat(filepath.Join(root, d)); err != nil || !info.IsDir() {
			r.errorf("Missing required directory: %s/", d)
		} else {
			r.Notes = append(r.Notes, "OK: "+d+"/")
		}
	}
	r.checkPluginJSON(root)

	files, err := collect(root)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkFile(root, f.path, f.kind, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validating files: %w", err)
	}

	for _, res := range results {
		r.merge(res)
	}
	r.Valid = len(r.Stats.Errors) == 0
	return r, nil
}

type candidate struct {
	path string
	kind kind
}

// collect lists skills/*/SKILL.md, agents/*.md and commands/*.md in a
// stable order.
func collect(root string) ([]candidate, error) {
	fsys := os.DirFS(root)
	var out []candidate
	for _, spec := range []struct {
		pattern string
		kind    kind
	}{
		{"skills/*/SKILL.md", kindSkill},
		{"agents/*.md", kindAgent},
		{"commands/*.md", kindCommand},
	} {
		matches, err := doublestar.Glob(fsys, spec.pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", spec.pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			out = append(out, candidate{path: filepath.Join(root, filepath.FromSlash(m)), kind: spec.kind})
		}
	}
	return out, nil
}

func checkFile(root, path string, k kind, opts Options) fileResult {
	res := fileResult{path: path, kind: k}
	data, err := os.ReadFile(path)
	if err != nil {
		res.errors = append(res.errors, fmt.Sprintf("Failed to read %s: %s - %v", kindName(k), path, err))
		return res
	}
	content := string(data)

	_, _, hasFrontmatter := skills.Split(content)
	cfg, err := skills.ParseFrontmatter(content)

	switch k {
	case kindCommand:
		res.valid = true
		name := strings.TrimSuffix(filepath.Base(path), ".md")
		if err == nil && cfg.Name != "" {
			name = cfg.Name
		}
		res.notes = append(res.notes, "Valid command: "+name)
		return res
	case kindSkill, kindAgent:
		label := "Skill"
		if k == kindAgent {
			label = "Agent"
		}
		switch {
		case !hasFrontmatter:
			res.errors = append(res.errors, fmt.Sprintf("%s missing frontmatter: %s", label, path))
			return res
		case err != nil:
			res.errors = append(res.errors, fmt.Sprintf("%s has invalid frontmatter: %s - %v", label, path, err))
			return res
		case cfg.Name == "":
			res.errors = append(res.errors, fmt.Sprintf("%s missing 'name' in frontmatter: %s", label, path))
			return res
		}
		if k == kindSkill {
			if cfg.Description == "" {
				res.warnings = append(res.warnings, "Skill missing 'description': "+path)
			}
			if strings.Contains(content, "hooks:") {
				res.checkHooks(root, content, opts)
			}
		}
		res.valid = true
		res.notes = append(res.notes, fmt.Sprintf("Valid %s: %s", strings.ToLower(label), cfg.Name))
	}
	return res
}

// checkHooks verifies the scripts and handlers a skill's hooks point at.
// A .sh reference is satisfied by a .js file of the same name.
func (res *fileResult) checkHooks(root, content string, opts Options) {
	for _, m := range scriptRefRe.FindAllStringSubmatch(content, -1) {
		res.hooks.Total++
		script := filepath.Join(root, "scripts", m[1])
		alt := strings.TrimSuffix(script, ".sh") + ".js"
		if exists(script) || exists(alt) {
			res.hooks.Valid++
			res.notes = append(res.notes, "Valid hook reference: "+m[1])
			continue
		}
		res.hooks.Invalid++
		res.errors = append(res.errors, fmt.Sprintf("Missing hook script: %s (referenced in %s)", m[1], res.path))
	}
	if opts.KnownHandler == nil {
		return
	}
	for _, m := range handlerRefRe.FindAllStringSubmatch(content, -1) {
		res.hooks.Total++
		if opts.KnownHandler(m[1]) {
			res.hooks.Valid++
			res.notes = append(res.notes, "Valid hook handler: "+m[1])
			continue
		}
		res.hooks.Invalid++
		res.errors = append(res.errors, fmt.Sprintf("Unknown hook handler: %s (referenced in %s)", m[1], res.path))
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func kindName(k kind) string {
	switch k {
	case kindSkill:
		return "skill"
	case kindAgent:
		return "agent"
	}
	return "command"
}

func (r *Report) errorf(format string, args ...any) {
	r.Stats.Errors = append(r.Stats.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) checkPluginJSON(root string) {
	data, err := os.ReadFile(filepath.Join(root, "plugin.json"))
	if err != nil {
		r.errorf("Invalid plugin.json: %v", err)
		return
	}
	var p struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		r.errorf("Invalid plugin.json: %v", err)
		return
	}
	switch {
	case p.Name == "":
		r.errorf(`plugin.json missing "name" field`)
	case p.Version == "":
		r.errorf(`plugin.json missing "version" field`)
	default:
		r.Plugin = fmt.Sprintf("%s v%s", p.Name, p.Version)
	}
}

func (r *Report) merge(res fileResult) {
	var c *Counts
	switch res.kind {
	case kindSkill:
		c = &r.Stats.Skills
	case kindAgent:
		c = &r.Stats.Agents
	default:
		c = &r.Stats.Commands
	}
	c.Total++
	if res.valid {
		c.Valid++
	} else {
		c.Invalid++
	}
	r.Stats.Hooks.Total += res.hooks.Total
	r.Stats.Hooks.Valid += res.hooks.Valid
	r.Stats.Hooks.Invalid += res.hooks.Invalid
	r.Stats.Errors = append(r.Stats.Errors, res.errors...)
	r.Stats.Warnings = append(r.Stats.Warnings, res.warnings...)
	r.Notes = append(r.Notes, res.notes...)
}
