// Package prompts implements MCP prompt handlers for the PDCA workflow.
//
// Each prompt is a user-picked script that walks the model through the
// PDCA tools in order.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the pdca-start MCP prompt.
// It guides the AI to open a feature and write its plan.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("pdca-start",
		mcp.WithPromptDescription(
			"Start a feature with the PDCA cycle. "+
				"Registers the feature, creates its task chain, and walks you "+
				"through writing the plan document.",
		),
		mcp.WithArgument("feature",
			mcp.ArgumentDescription("Feature name in kebab-case, e.g. user-auth"),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("One sentence on what the feature should achieve"),
		),
	)
}

// Handle processes the pdca-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	feature := "new-feature"
	goal := ""
	if args := req.Params.Arguments; args != nil {
		if f, ok := args["feature"]; ok && f != "" {
			feature = f
		}
		goal = args["goal"]
	}

	goalLine := "Ask me what the feature should achieve before writing anything."
	if goal != "" {
		goalLine = fmt.Sprintf("The goal is: %s", goal)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start PDCA feature: %s", feature),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to start the feature '%s' with the PDCA cycle. %s\n\n"+
						"Please:\n"+
						"1. Run `pdca_update` with feature='%s' and phase='plan'\n"+
						"2. Run `pdca_chain` with feature='%s' and action='create'\n"+
						"3. Ask me clarifying questions if the goal is vague (use `pdca_ambiguity`)\n"+
						"4. Write the plan to docs/01-plan/features/%s.plan.md\n"+
						"5. When I approve the plan, run `pdca_advance` to move to design",
					feature, goalLine, feature, feature, feature,
				)),
			},
		},
	}, nil
}
