package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/bkit-dev/bkit/internal/platform"
)

func rpc(t *testing.T, handle func(context.Context, json.RawMessage) string, id int, method string) string {
	t.Helper()
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":{}}`, id, method)
	return handle(context.Background(), json.RawMessage(msg))
}

func TestNew_RegistersEverything(t *testing.T) {
	s, cleanup, err := New(platform.Env{Platform: platform.Claude, ProjectDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cleanup()

	handle := func(ctx context.Context, raw json.RawMessage) string {
		data, err := json.Marshal(s.HandleMessage(ctx, raw))
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		return string(data)
	}

	_ = handle(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
	))

	toolList := rpc(t, handle, 2, "tools/list")
	for _, name := range []string{
		"pdca_status", "pdca_update", "pdca_advance", "pdca_validate_transition",
		"pdca_chain", "pdca_classify", "pdca_ambiguity", "bkit_memory",
		"journal_search", "journal_recent", "journal_context", "journal_session", "journal_stats",
	} {
		if !strings.Contains(toolList, `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}

	promptList := rpc(t, handle, 3, "prompts/list")
	for _, name := range []string{"pdca-start", "pdca-status"} {
		if !strings.Contains(promptList, `"`+name+`"`) {
			t.Errorf("prompt %s not registered", name)
		}
	}

	resourceList := rpc(t, handle, 4, "resources/list")
	for _, uri := range []string{"bkit://pdca/status", "bkit://memory", "bkit://journal/recent"} {
		if !strings.Contains(resourceList, uri) {
			t.Errorf("resource %s not registered", uri)
		}
	}
}

func TestNew_RequiresProjectDir(t *testing.T) {
	_, cleanup, err := New(platform.Env{})
	if err == nil {
		t.Fatal("expected error without project dir")
	}
	cleanup()
}
