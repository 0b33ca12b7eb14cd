// Package resources implements MCP resource handlers over bkit's state.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (bkit://...) following MCP conventions.
package resources

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/journal"
	"github.com/bkit-dev/bkit/internal/memory"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// Resource URIs.
const (
	StatusURI  = "bkit://pdca/status"
	JournalURI = "bkit://journal/recent"
	MemoryURI  = "bkit://memory"
)

// Handler manages bkit resource endpoints. A nil journal leaves the
// journal resource reporting that it is unavailable.
type Handler struct {
	status  *pdca.Store
	journal *journal.Store
	memory  *memory.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(status *pdca.Store, j *journal.Store, mem *memory.Store) *Handler {
	return &Handler{status: status, journal: j, memory: mem}
}

// StatusResource returns the MCP resource definition for the PDCA status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"PDCA Status",
		mcp.WithResourceDescription("The PDCA status document: features, phases, match rates and history"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the status document as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.status.Get(true)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if st == nil {
		st = pdca.NewStatus()
	}
	return jsonResource(req.Params.URI, st)
}

// JournalResource returns the MCP resource definition for recent hook runs.
func (h *Handler) JournalResource() mcp.Resource {
	return mcp.NewResource(
		JournalURI,
		"Recent Hook Activity",
		mcp.WithResourceDescription("The 50 newest hook journal entries, newest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleJournal returns the newest journal entries as JSON.
func (h *Handler) HandleJournal(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.journal == nil {
		return errorResource(req.Params.URI, "journal unavailable"), nil
	}
	events, err := h.journal.Recent(journal.Filter{Limit: 50})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if events == nil {
		events = []journal.Event{}
	}
	return jsonResource(req.Params.URI, events)
}

// MemoryResource returns the MCP resource definition for the project memory.
func (h *Handler) MemoryResource() mcp.Resource {
	return mcp.NewResource(
		MemoryURI,
		"Project Memory",
		mcp.WithResourceDescription("Key/value facts bkit keeps across sessions"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleMemory returns the memory document as JSON.
func (h *Handler) HandleMemory(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	h.memory.Invalidate()
	return jsonResource(req.Params.URI, h.memory.All())
}
