// Package archive moves a finished feature's PDCA documents into the
// monthly archive and keeps the month's index table.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// Dir is the archive root relative to the project.
const Dir = "docs/archive"

// IndexFile is the per-month index name.
const IndexFile = "_INDEX.md"

// ErrNoDocuments is returned when the feature has nothing to archive.
var ErrNoDocuments = errors.New("no PDCA documents found")

var timeNow = time.Now

// Document is one archived file.
type Document struct {
	Type string
	Path string
}

// Result describes a completed archive run.
type Result struct {
	Feature   string
	Dir       string
	IndexPath string
	Moved     []Document
}

// candidate lists a document type and its accepted file names, preferred
// first.
type candidate struct {
	types []string
	paths []string
}

func candidates(feature string) []candidate {
	return []candidate{
		{[]string{"plan"}, []string{"docs/01-plan/features/" + feature + ".plan.md"}},
		{[]string{"design"}, []string{"docs/02-design/features/" + feature + ".design.md"}},
		{[]string{"analysis", "gap-analysis"}, []string{
			"docs/03-analysis/" + feature + ".analysis.md",
			"docs/03-analysis/" + feature + ".gap-analysis.md",
		}},
		{[]string{"report", "completion-report"}, []string{
			"docs/04-report/" + feature + ".report.md",
			"docs/04-report/" + feature + ".completion-report.md",
		}},
	}
}

// Find returns the feature's existing documents in plan, design,
// analysis, report order.
func Find(root, feature string) []Document {
	var docs []Document
	for _, c := range candidates(feature) {
		for i, rel := range c.paths {
			p := filepath.Join(root, filepath.FromSlash(rel))
			if _, err := os.Stat(p); err == nil {
				docs = append(docs, Document{Type: c.types[i], Path: p})
				break
			}
		}
	}
	return docs
}

// CheckedPaths lists the primary locations Find looks at, for error
// output.
func CheckedPaths(root, feature string) []string {
	var out []string
	for _, c := range candidates(feature) {
		out = append(out, filepath.Join(root, filepath.FromSlash(c.paths[0])))
	}
	return out
}

// Archiver moves documents under a project root.
type Archiver struct {
	root  string
	store *pdca.Store
}

// New creates an archiver. store may be nil; when set, an archived
// feature that the status document knows is marked archived.
func New(root string, store *pdca.Store) *Archiver {
	return &Archiver{root: root, store: store}
}

// Archive moves feature's documents into docs/archive/YYYY-MM/<feature>/
// and appends a row to that month's index.
func (a *Archiver) Archive(feature string) (*Result, error) {
	if feature == "" {
		return nil, fmt.Errorf("archive: feature name is required")
	}
	docs := Find(a.root, feature)
	if len(docs) == 0 {
		return nil, fmt.Errorf("feature %q: %w", feature, ErrNoDocuments)
	}

	now := timeNow()
	month := now.Format("2006-01")
	monthDir := filepath.Join(a.root, filepath.FromSlash(Dir), month)
	dest := filepath.Join(monthDir, feature)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	res := &Result{Feature: feature, Dir: dest, IndexPath: filepath.Join(monthDir, IndexFile)}
	for _, d := range docs {
		target := filepath.Join(dest, filepath.Base(d.Path))
		if err := os.Rename(d.Path, target); err != nil {
			return res, fmt.Errorf("moving %s: %w", d.Path, err)
		}
		res.Moved = append(res.Moved, Document{Type: d.Type, Path: target})
	}

	if err := appendIndex(res.IndexPath, month, IndexRow(feature, now, res.Moved)); err != nil {
		return res, err
	}

	if a.store != nil && a.store.Feature(feature) != nil {
		rel, _ := filepath.Rel(a.root, dest)
		if err := a.store.Update(feature, pdca.PhaseArchived, pdca.Patch{
			"archivedTo": filepath.ToSlash(rel),
			"timestamps": map[string]any{"archived": pdca.Now()},
		}); err != nil {
			return res, fmt.Errorf("updating status: %w", err)
		}
		if err := a.store.RemoveActive(feature); err != nil {
			return res, fmt.Errorf("updating status: %w", err)
		}
	}
	return res, nil
}

// IndexHeader starts a month's index.
func IndexHeader(month string) string {
	return "# Archive - " + month + "\n\n" +
		"Archived PDCA documents.\n\n" +
		"| Feature | Archived Date | Status | Documents |\n" +
		"|---------|---------------|--------|-----------|\n"
}

// IndexRow is the table line for one archived feature.
func IndexRow(feature string, at time.Time, docs []Document) string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Type+".md")
	}
	return fmt.Sprintf("| %s | %s | Completed | %s |\n", feature, at.UTC().Format("2006-01-02"), strings.Join(names, ", "))
}

func appendIndex(path, month, row string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening archive index: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("opening archive index: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(IndexHeader(month)); err != nil {
			return fmt.Errorf("writing archive index: %w", err)
		}
	}
	if _, err := f.WriteString(row); err != nil {
		return fmt.Errorf("writing archive index: %w", err)
	}
	return nil
}
