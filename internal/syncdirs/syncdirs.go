// Package syncdirs mirrors the plugin content folders between .claude/
// and the plugin root.
package syncdirs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Folders are the content folders kept in sync.
var Folders = []string{"skills", "agents", "commands", "templates"}

// Action kinds.
const (
	ActionNew       = "NEW"
	ActionUpdate    = "UPDATE"
	ActionSkipNewer = "SKIP (target newer)"
	ActionSkipMatch = "SKIP (identical)"
	ActionError     = "ERROR"
)

// sourceDir holds the source-of-truth copy under the plugin root.
const sourceDir = ".claude"

// Options control a sync run.
type Options struct {
	DryRun bool
	// Force overwrites targets even when they are newer.
	Force bool
	// Reverse copies root folders into .claude/.
	Reverse bool
}

// Action is what happened, or would happen, to one file.
type Action struct {
	Kind   string
	Folder string
	Path   string
	Err    error
}

// Stats counts applied changes. A dry run only counts skips.
type Stats struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Result is the outcome of Sync.
type Result struct {
	Source  string
	Target  string
	Actions []Action
	// MissingFolders lists folders absent from the source.
	MissingFolders []string
	// NoSource is set when .claude/ is absent in normal direction.
	NoSource bool
	Stats    Stats
}

// Sync copies new and changed files from the source tree to the target
// tree under root.
func Sync(root string, opts Options) (*Result, error) {
	src, dst := filepath.Join(root, sourceDir), root
	if opts.Reverse {
		src, dst = dst, src
	}
	res := &Result{Source: src, Target: dst}

	if !opts.Reverse {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			res.NoSource = true
			return res, nil
		}
	}

	for _, folder := range Folders {
		srcDir := filepath.Join(src, folder)
		if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
			res.MissingFolders = append(res.MissingFolders, folder)
			continue
		}
		files, err := doublestar.Glob(os.DirFS(srcDir), "**", doublestar.WithFilesOnly())
		if err != nil {
			return res, fmt.Errorf("listing %s: %w", srcDir, err)
		}
		for _, rel := range files {
			a := syncFile(filepath.Join(srcDir, filepath.FromSlash(rel)), filepath.Join(dst, folder, filepath.FromSlash(rel)), opts)
			a.Folder, a.Path = folder, rel
			res.record(a, opts.DryRun)
		}
	}
	return res, nil
}

func (r *Result) record(a Action, dryRun bool) {
	r.Actions = append(r.Actions, a)
	switch a.Kind {
	case ActionSkipMatch, ActionSkipNewer:
		r.Stats.Skipped++
	case ActionError:
		r.Stats.Errors++
	case ActionNew:
		if !dryRun {
			r.Stats.New++
		}
	case ActionUpdate:
		if !dryRun {
			r.Stats.Updated++
		}
	}
}

func syncFile(src, dst string, opts Options) Action {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Action{Kind: ActionError, Err: err}
	}
	dstInfo, err := os.Stat(dst)
	exists := err == nil

	if exists {
		if same, _ := sameContent(src, dst); same {
			return Action{Kind: ActionSkipMatch}
		}
		if !opts.Force && dstInfo.ModTime().After(srcInfo.ModTime()) {
			return Action{Kind: ActionSkipNewer}
		}
	}

	kind := ActionNew
	if exists {
		kind = ActionUpdate
	}
	if opts.DryRun {
		return Action{Kind: kind}
	}
	if err := copyFile(src, dst, srcInfo.Mode().Perm()); err != nil {
		return Action{Kind: ActionError, Err: err}
	}
	return Action{Kind: kind}
}

func sameContent(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
