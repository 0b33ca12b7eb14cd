package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the pdca-status MCP prompt.
// It instructs the AI to read and present the PDCA state of the project.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("pdca-status",
		mcp.WithPromptDescription(
			"Check where every feature stands in the PDCA cycle "+
				"and what to do next.",
		),
	)
}

// Handle processes the pdca-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "PDCA Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `pdca_status` to check my PDCA progress.\n\n" +
						"Then:\n" +
						"1. Show each feature's phase and match rate in a compact table\n" +
						"2. For the primary feature, run `pdca_chain` and show its task chain\n" +
						"3. Flag features stuck in act with a match rate below 90%\n" +
						"4. Tell me exactly what I should do next",
				),
			},
		},
	}, nil
}
