package archive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bkit-dev/bkit/internal/pdca"
)

func writeDoc(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("# "+rel+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixClock(t *testing.T) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })
}

// --- Find ---

func TestFind_PrefersPrimaryNames(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/01-plan/features/login.plan.md")
	writeDoc(t, root, "docs/03-analysis/login.analysis.md")
	writeDoc(t, root, "docs/03-analysis/login.gap-analysis.md")
	writeDoc(t, root, "docs/04-report/login.completion-report.md")

	var got []string
	for _, d := range Find(root, "login") {
		got = append(got, d.Type)
	}
	want := []string{"plan", "analysis", "completion-report"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find types mismatch (-want +got):\n%s", diff)
	}
}

// --- Archive ---

func TestArchive_MovesDocsAndWritesIndex(t *testing.T) {
	fixClock(t)
	root := t.TempDir()
	writeDoc(t, root, "docs/01-plan/features/login.plan.md")
	writeDoc(t, root, "docs/02-design/features/login.design.md")

	res, err := New(root, nil).Archive("login")
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	wantDir := filepath.Join(root, "docs", "archive", "2026-03", "login")
	if res.Dir != wantDir {
		t.Errorf("Dir = %q, want %q", res.Dir, wantDir)
	}
	for _, name := range []string{"login.plan.md", "login.design.md"} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("%s not archived: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "docs/01-plan/features/login.plan.md")); !os.IsNotExist(err) {
		t.Error("plan document still in place")
	}

	data, err := os.ReadFile(res.IndexPath)
	if err != nil {
		t.Fatalf("reading index failed: %v", err)
	}
	index := string(data)
	if !strings.HasPrefix(index, "# Archive - 2026-03\n") {
		t.Errorf("index header = %q", index)
	}
	if !strings.Contains(index, "|---------|---------------|--------|-----------|\n") {
		t.Error("index missing table separator")
	}
	if !strings.HasSuffix(index, "| login | 2026-03-14 | Completed | plan.md, design.md |\n") {
		t.Errorf("index row missing:\n%s", index)
	}
}

func TestArchive_AppendsToExistingIndex(t *testing.T) {
	fixClock(t)
	root := t.TempDir()
	writeDoc(t, root, "docs/01-plan/features/a.plan.md")
	writeDoc(t, root, "docs/04-report/b.report.md")

	a := New(root, nil)
	if _, err := a.Archive("a"); err != nil {
		t.Fatalf("Archive(a) failed: %v", err)
	}
	res, err := a.Archive("b")
	if err != nil {
		t.Fatalf("Archive(b) failed: %v", err)
	}

	data, _ := os.ReadFile(res.IndexPath)
	if n := strings.Count(string(data), "# Archive - "); n != 1 {
		t.Errorf("header written %d times", n)
	}
	if !strings.Contains(string(data), "| a | 2026-03-14 | Completed | plan.md |\n| b | 2026-03-14 | Completed | report.md |\n") {
		t.Errorf("rows not appended in order:\n%s", data)
	}
}

func TestArchive_NoDocuments(t *testing.T) {
	_, err := New(t.TempDir(), nil).Archive("ghost")
	if !errors.Is(err, ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestArchive_MarksStatusArchived(t *testing.T) {
	fixClock(t)
	root := t.TempDir()
	writeDoc(t, root, "docs/04-report/login.report.md")

	store := pdca.NewStore(root)
	if err := store.Complete("login"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if _, err := New(root, store).Archive("login"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	st, err := store.Get(true)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	f := st.Features["login"]
	if f == nil || f.Phase != pdca.PhaseArchived {
		t.Fatalf("feature = %+v, want archived", f)
	}
	if f.Extra["archivedTo"] != "docs/archive/2026-03/login" {
		t.Errorf("archivedTo = %v", f.Extra["archivedTo"])
	}
	if f.Timestamps["archived"] == "" {
		t.Error("archived timestamp not set")
	}
	for _, active := range st.ActiveFeatures {
		if active == "login" {
			t.Error("archived feature still active")
		}
	}
}
