package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
	"github.com/bkit-dev/bkit/internal/pdca"
)

func newHandler(t *testing.T) (*Handler, *pdca.Store, *journal.Store, *memory.Store) {
	t.Helper()
	root := t.TempDir()
	j, err := journal.Open(journal.Path(root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	status := pdca.NewStore(root)
	mem := memory.New(root, nil)
	return NewHandler(status, j, mem), status, j, mem
}

func read(t *testing.T, handle func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := handle(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok, "content is %T", contents[0])
	return tc
}

// --- Status ---

func TestHandleStatus(t *testing.T) {
	h, status, _, _ := newHandler(t)

	empty := read(t, h.HandleStatus, StatusURI)
	assert.Equal(t, "application/json", empty.MIMEType)
	assert.Contains(t, empty.Text, `"features": {}`)

	require.NoError(t, status.Update("login", pdca.PhaseDesign, nil))
	got := read(t, h.HandleStatus, StatusURI)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Text), &doc))
	assert.Equal(t, "login", doc["primaryFeature"])
	features, _ := doc["features"].(map[string]any)
	assert.Contains(t, features, "login")
}

// --- Journal ---

func TestHandleJournal(t *testing.T) {
	h, _, j, _ := newHandler(t)

	assert.Equal(t, "[]", read(t, h.HandleJournal, JournalURI).Text)

	_, err := j.Record(journal.Event{Event: "Stop", Handler: "stop"})
	require.NoError(t, err)
	assert.Contains(t, read(t, h.HandleJournal, JournalURI).Text, `"event": "Stop"`)

	nilJournal := NewHandler(pdca.NewStore(t.TempDir()), nil, memory.New(t.TempDir(), nil))
	got := read(t, nilJournal.HandleJournal, JournalURI)
	assert.True(t, strings.HasPrefix(got.Text, "Error:"))
}

// --- Memory ---

func TestHandleMemory(t *testing.T) {
	h, _, _, mem := newHandler(t)
	require.NoError(t, mem.Set(memory.KeySessionCount, 3))

	got := read(t, h.HandleMemory, MemoryURI)
	assert.Contains(t, got.Text, `"sessionCount": 3`)
	assert.Equal(t, MemoryURI, got.URI)
}
