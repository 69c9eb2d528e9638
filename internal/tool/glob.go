package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steerrt/agentrt/internal/workspace"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Honors the workspace's ignore files (.gitignore)
- Use this tool when you need to find files by name patterns`

var globSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string", "description": "The glob pattern to match files against"}
	},
	"required": ["pattern"]
}`)

type globInput struct {
	Pattern string `json:"pattern"`
}

const maxGlobResults = 100

// NewGlobTool enumerates files matching a pattern through ws.
func NewGlobTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("glob", globDescription, globSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("glob", globSchema, input); err != nil {
			return nil, err
		}
		var params globInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		files, err := ws.Glob(workspace.OpContext{Ctx: ctx, Op: "glob"}, params.Pattern)
		if err != nil {
			return nil, err
		}

		truncated := false
		if len(files) > maxGlobResults {
			files = files[:maxGlobResults]
			truncated = true
		}

		output := strings.Join(files, "\n")
		if truncated {
			output += fmt.Sprintf("\n\n(showing first %d matches)", maxGlobResults)
		}

		return &Result{
			Title:  fmt.Sprintf("Found %d files", len(files)),
			Output: output,
			Metadata: map[string]any{
				"pattern":   params.Pattern,
				"count":     len(files),
				"truncated": truncated,
			},
		}, nil
	})
}
