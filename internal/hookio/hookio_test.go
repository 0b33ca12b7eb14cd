package hookio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bkit-dev/bkit/internal/platform"
)

// --- Read ---

func TestRead_MalformedIsEmpty(t *testing.T) {
	for _, in := range []string{"", "not json", "[1,2]", "null"} {
		got := Read(strings.NewReader(in))
		if len(got.Raw) != 0 {
			t.Errorf("Read(%q) = %v, want empty", in, got.Raw)
		}
	}
}

func TestRead_Accessors(t *testing.T) {
	in := Read(strings.NewReader(`{
		"tool_name": "Write",
		"tool_input": {"file_path": "src/a.ts", "content": "x", "command": "ls", "old_string": "o"},
		"user_message": "hello"
	}`))

	checks := map[string]string{
		"ToolName":  in.ToolName(),
		"FilePath":  in.FilePath(),
		"Content":   in.Content(),
		"Command":   in.Command(),
		"OldString": in.OldString(),
		"Prompt":    in.Prompt(),
	}
	want := map[string]string{
		"ToolName": "Write", "FilePath": "src/a.ts", "Content": "x",
		"Command": "ls", "OldString": "o", "Prompt": "hello",
	}
	for k, v := range want {
		if checks[k] != v {
			t.Errorf("%s = %q, want %q", k, checks[k], v)
		}
	}
}

func TestRead_CamelCaseFallbacks(t *testing.T) {
	in := Parse([]byte(`{"toolName":"Edit","tool_input":{"filePath":"b.go"}}`))
	if in.ToolName() != "Edit" || in.FilePath() != "b.go" {
		t.Errorf("got %q %q", in.ToolName(), in.FilePath())
	}
}

func TestRead_CapsAtLimit(t *testing.T) {
	big := `{"prompt":"` + strings.Repeat("a", MaxStdinBytes) + `"}`
	in := Read(strings.NewReader(big))
	if len(in.Raw) != 0 {
		t.Error("oversized payload should be cut and fail to parse")
	}
}

// --- Truncate / XMLSafe ---

func TestTruncate(t *testing.T) {
	short := "short"
	if Truncate(short) != short {
		t.Error("short string changed")
	}
	long := strings.Repeat("x", 600)
	got := Truncate(long)
	if !strings.HasSuffix(got, "... (truncated)") || len(got) != 500+len("... (truncated)") {
		t.Errorf("Truncate len = %d", len(got))
	}
}

func TestXMLSafe(t *testing.T) {
	got := XMLSafe(`<a href="x">Tom & 'Jerry'</a>`)
	want := "&lt;a href=&quot;x&quot;&gt;Tom &amp; &#39;Jerry&#39;&lt;/a&gt;"
	if got != want {
		t.Errorf("XMLSafe = %s", got)
	}
}

// --- Write ---

func TestWrite_Matrix(t *testing.T) {
	tests := []struct {
		name string
		p    platform.Name
		r    Result
		want string
	}{
		{"claude allow text", platform.Claude, Allow("ok", "PreToolUse"), "ok\n"},
		{"claude allow session", platform.Claude, Allow("hi", "SessionStart"), `{"success":true,"message":"hi"}` + "\n"},
		{"claude allow empty", platform.Claude, Allow("", "PostToolUse"), ""},
		{"claude block", platform.Claude, Block("no"), `{"decision":"block","reason":"no"}` + "\n"},
		{"claude empty", platform.Claude, Empty(), ""},
		{"gemini allow", platform.Gemini, Allow("ok", "PreToolUse"), `{"status":"allow","message":"ok"}` + "\n"},
		{"gemini block", platform.Gemini, Block("no"), `{"status":"block","message":"no"}` + "\n"},
		{"gemini empty", platform.Gemini, Empty(), `{"status":"allow"}` + "\n"},
		{"raw text", platform.Claude, Raw("plain"), "plain\n"},
		{"halt", platform.Claude, Halt(), `{"continue":false}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.p, tt.r); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWrite_AllowTruncates(t *testing.T) {
	var buf bytes.Buffer
	_ = Write(&buf, platform.Claude, Allow(strings.Repeat("y", 700), "Stop"))
	if !strings.Contains(buf.String(), "... (truncated)") {
		t.Error("long allow message should be truncated")
	}
}
