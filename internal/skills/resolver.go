package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bkit-dev/bkit/internal/debuglog"
)

// ImportCacheTTL bounds how long an imported file's content is reused.
const ImportCacheTTL = 30 * time.Second

// timeNow is a package-level variable for testability.
var timeNow = time.Now

type cached struct {
	content string
	at      time.Time
}

// Resolver loads the files named by a frontmatter "imports" list.
type Resolver struct {
	pluginRoot string
	projectDir string
	userConfig string
	log        *debuglog.Logger

	mu    sync.Mutex
	cache map[string]cached
	stack map[string]bool
}

// NewResolver creates a resolver that expands ${PLUGIN_ROOT}, ${PROJECT}
// and ${USER_CONFIG}.
func NewResolver(pluginRoot, projectDir, userConfigDir string, log *debuglog.Logger) *Resolver {
	if log == nil {
		log = debuglog.Nop()
	}
	return &Resolver{
		pluginRoot: pluginRoot,
		projectDir: projectDir,
		userConfig: userConfigDir,
		log:        log,
		cache:      map[string]cached{},
		stack:      map[string]bool{},
	}
}

// ResolveVariables expands the path variables in p.
func (r *Resolver) ResolveVariables(p string) string {
	return strings.NewReplacer(
		"${PLUGIN_ROOT}", r.pluginRoot,
		"${PROJECT}", r.projectDir,
		"${USER_CONFIG}", r.userConfig,
	).Replace(p)
}

// ResolvePath expands variables and resolves "./" and "../" paths against
// the directory of fromFile.
func (r *Resolver) ResolvePath(importPath, fromFile string) string {
	p := r.ResolveVariables(importPath)
	if strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		p = filepath.Join(filepath.Dir(fromFile), p)
	}
	return filepath.Clean(p)
}

// Load returns the content of an absolute path, or "" when it cannot be
// read. Content is cached for ImportCacheTTL.
func (r *Resolver) Load(path string) string {
	r.mu.Lock()
	if c, ok := r.cache[path]; ok && timeNow().Sub(c.at) < ImportCacheTTL {
		r.mu.Unlock()
		return c.content
	}
	r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Log("ImportResolver", "Failed to load import", map[string]any{"path": path, "error": err.Error()})
		return ""
	}
	content := string(data)
	r.mu.Lock()
	r.cache[path] = cached{content: content, at: timeNow()}
	r.mu.Unlock()
	return content
}

// Resolve loads each import of sourceFile. Every loaded file is prefixed
// with an "Imported from" comment; problems are returned as messages.
func (r *Resolver) Resolve(imports []string, sourceFile string) (string, []string) {
	if len(imports) == 0 {
		return "", nil
	}
	r.log.Log("ImportResolver", "Resolving imports", map[string]any{"sourceFile": sourceFile, "importCount": len(imports)})

	var parts, errs []string
	for _, imp := range imports {
		abs := r.ResolvePath(imp, sourceFile)

		r.mu.Lock()
		circular := r.stack[abs]
		if !circular {
			r.stack[abs] = true
		}
		r.mu.Unlock()
		if circular {
			errs = append(errs, "Circular import detected: "+imp)
			continue
		}

		content := r.Load(abs)
		if content != "" {
			// nested imports are expanded while abs is on the stack
			if cfg, err := ParseFrontmatter(content); err == nil && len(cfg.Imports) > 0 {
				nested, nestedErrs := r.Resolve(cfg.Imports, abs)
				errs = append(errs, nestedErrs...)
				if nested != "" {
					content = nested + "\n\n" + content
				}
			}
			parts = append(parts, fmt.Sprintf("<!-- Imported from: %s -->\n%s", imp, content))
		} else {
			errs = append(errs, "Failed to load: "+imp)
		}

		r.mu.Lock()
		delete(r.stack, abs)
		r.mu.Unlock()
	}
	return strings.Join(parts, "\n\n"), errs
}

var frontmatterBlockRe = regexp.MustCompile(`(?s)^(---.*?---\r?\n)`)

// ProcessMarkdown returns the file at path with its imports inserted right
// after the frontmatter.
func (r *Resolver) ProcessMarkdown(path string) (string, []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", []string{"File not found: " + path}
	}
	content := string(data)
	cfg, err := ParseFrontmatter(content)
	if err != nil || len(cfg.Imports) == 0 {
		return content, nil
	}

	abs, _ := filepath.Abs(path)
	r.mu.Lock()
	r.stack[abs] = true
	r.mu.Unlock()
	imported, errs := r.Resolve(cfg.Imports, path)
	r.mu.Lock()
	delete(r.stack, abs)
	r.mu.Unlock()

	if imported == "" {
		return content, errs
	}
	loc := frontmatterBlockRe.FindStringIndex(content)
	if loc == nil {
		return content, errs
	}
	return content[:loc[1]] + "\n" + imported + "\n\n" + content[loc[1]:], errs
}

// ClearCache drops every cached import.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = map[string]cached{}
	r.mu.Unlock()
}

// CacheEntries lists the cached paths in sorted order.
func (r *Resolver) CacheEntries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.cache))
	for k := range r.cache {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
