// Package tools implements the MCP tool handlers over the PDCA status
// document.
//
// Each tool is a struct holding its dependencies, injected through its
// constructor. Definition returns the mcp.Tool schema and Handle serves
// the call. One file per tool.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/pdca"
)

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// jsonBlock renders v as an indented ```json block.
func jsonBlock(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	return "```json\n" + string(data) + "\n```", nil
}

// phaseArg reads a phase argument and rejects unknown names.
func phaseArg(req mcp.CallToolRequest, key string) (pdca.Phase, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return "", fmt.Errorf("'%s' is required", key)
	}
	phase := pdca.Phase(raw)
	if !pdca.IsKnownPhase(phase) {
		return "", fmt.Errorf("unknown phase %q", raw)
	}
	return phase, nil
}

// phaseNames lists the phases a tool accepts, for schema enums.
func phaseNames() []string {
	out := make([]string, 0, len(pdca.PhaseOrder)+1)
	for _, p := range pdca.PhaseOrder {
		out = append(out, string(p))
	}
	return append(out, string(pdca.PhaseCompleted))
}

// featureOrPrimary returns the feature argument or the primary feature.
func featureOrPrimary(req mcp.CallToolRequest, store *pdca.Store) string {
	if f := req.GetString("feature", ""); f != "" {
		return f
	}
	return store.Primary()
}
