package debuglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bkit-dev/bkit/internal/platform"
)

func TestPath_PerPlatform(t *testing.T) {
	tests := []struct {
		name platform.Name
		want string
	}{
		{platform.Claude, filepath.Join("/p", ".claude", FileName)},
		{platform.Gemini, filepath.Join("/p", ".gemini", FileName)},
		{platform.Unknown, filepath.Join("/p", FileName)},
	}
	for _, tt := range tests {
		env := platform.Env{Platform: tt.name, ProjectDir: "/p"}
		if got := Path(env); got != tt.want {
			t.Errorf("Path(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestNew_DisabledIsNop(t *testing.T) {
	t.Setenv("BKIT_DEBUG", "")
	dir := t.TempDir()
	l := New(platform.Env{ProjectDir: dir})
	l.Log("Test", "nothing", nil)
	_ = l.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("log file should not exist when disabled, stat err = %v", err)
	}
}

func TestLog_WritesNDJSON(t *testing.T) {
	t.Setenv("BKIT_DEBUG", "true")
	dir := t.TempDir()
	env := platform.Env{Platform: platform.Claude, ProjectDir: dir}

	l := New(env)
	l.Log("PreToolUse", "Hook started", map[string]any{"filePath": "a.go"})
	l.Log("PreToolUse", "Hook completed", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(Path(env))
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	defer f.Close()

	var records []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line is not JSON: %q", sc.Text())
		}
		records = append(records, rec)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	first := records[0]
	if first["category"] != "PreToolUse" {
		t.Errorf("category = %v", first["category"])
	}
	if first["message"] != "Hook started" {
		t.Errorf("message = %v", first["message"])
	}
	if _, ok := first["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
	data, ok := first["data"].(map[string]any)
	if !ok || data["filePath"] != "a.go" {
		t.Errorf("data = %v", first["data"])
	}
	if _, ok := records[1]["data"]; ok {
		t.Error("nil data should be omitted")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log("x", "y", nil)
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil = %v", err)
	}
}
