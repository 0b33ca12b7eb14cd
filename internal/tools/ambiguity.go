package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/intent"
	"github.com/bkit-dev/bkit/internal/pdca"
)

// AmbiguityTool handles the pdca_ambiguity MCP tool.
// It scores a request and proposes clarifying questions.
type AmbiguityTool struct {
	store *pdca.Store
}

// NewAmbiguityTool creates an AmbiguityTool. The primary feature's phase
// is used to spot requests that conflict with the current work.
func NewAmbiguityTool(store *pdca.Store) *AmbiguityTool {
	return &AmbiguityTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *AmbiguityTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_ambiguity",
		mcp.WithDescription(
			"Score how ambiguous a request is (0 to 1). Scores of 0.5 and above need clarification; "+
				"the result then includes questions to ask the user.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("The user's request text"),
		),
	)
}

// Handle processes the pdca_ambiguity tool call.
func (t *AmbiguityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	request := req.GetString("request", "")
	if strings.TrimSpace(request) == "" {
		return mcp.NewToolResultError("'request' is required"), nil
	}

	var phase pdca.Phase
	if fs := t.store.Feature(t.store.Primary()); fs != nil {
		phase = fs.Phase
	}
	a := intent.AmbiguityScore(request, intent.Context{CurrentPhase: phase})

	result := map[string]any{
		"score":              a.Score,
		"factors":            a.Factors,
		"needsClarification": a.NeedsClarification(),
	}
	if len(a.Conflicts) > 0 {
		result["conflicts"] = a.Conflicts
	}
	if a.NeedsClarification() {
		result["questions"] = intent.ClarifyingQuestions(a)
	}
	block, err := jsonBlock(result)
	if err != nil {
		return nil, err
	}

	verdict := "Request is clear enough to proceed."
	if a.NeedsClarification() {
		verdict = "Request is ambiguous. Ask the questions below before starting."
	}
	return mcp.NewToolResultText(fmt.Sprintf("**Ambiguity %.2f**: %s\n\n%s", a.Score, verdict, block)), nil
}
