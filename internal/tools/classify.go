package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkit-dev/bkit/internal/task"
)

// ClassifyTool handles the pdca_classify MCP tool.
// It sizes a change and says how much PDCA process it warrants.
type ClassifyTool struct{}

// NewClassifyTool creates a ClassifyTool.
func NewClassifyTool() *ClassifyTool {
	return &ClassifyTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ClassifyTool) Definition() mcp.Tool {
	return mcp.NewTool("pdca_classify",
		mcp.WithDescription(
			"Classify a change by size: trivial (≤10 lines), minor (≤50), feature (≤200) or major. "+
				"Returns the matching PDCA level (none, light, standard, full) and a recommendation.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The code or text being written"),
		),
		mcp.WithString("feature",
			mcp.Description("Feature the change belongs to, used in the recommendation"),
		),
	)
}

// Handle processes the pdca_classify tool call.
func (t *ClassifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}
	feature := req.GetString("feature", "this feature")

	lines := task.LineCount(content)
	class := task.ClassifyByLines(content)
	level := task.PdcaLevel(class)

	block, err := jsonBlock(map[string]any{
		"lines":          lines,
		"classification": class,
		"pdcaLevel":      level,
	})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", task.GuidanceByLevel(level, feature, lines), block)), nil
}
