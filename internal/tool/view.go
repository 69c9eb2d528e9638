package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/steerrt/agentrt/internal/workspace"
)

const viewDescription = `Reads a file from the workspace.

Usage:
- file_path may be absolute or relative to the workspace root
- By default, reads up to 2000 lines from the beginning
- offset/limit paginate through larger files
- Returns file contents with line numbers`

var viewSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {"type": "string", "description": "Path to the file to read"},
		"offset": {"type": "integer", "description": "Line number to start reading from"},
		"limit": {"type": "integer", "description": "Number of lines to read (default: 2000)"}
	},
	"required": ["file_path"]
}`)

type viewInput struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// NewViewTool reads a file through ws.
func NewViewTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("view", viewDescription, viewSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("view", viewSchema, input); err != nil {
			return nil, err
		}
		var params viewInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		content, err := ws.ReadFile(workspace.OpContext{Ctx: ctx, Op: "view"}, params.FilePath, params.Offset, params.Limit)
		if err != nil {
			return nil, err
		}

		numbered := numberLines(content, params.Offset)
		return &Result{
			Title:  fmt.Sprintf("Read %s", filepath.Base(params.FilePath)),
			Output: numbered,
			Metadata: map[string]any{
				"file": params.FilePath,
			},
		}, nil
	})
}

func numberLines(content string, offset int) string {
	if content == "" {
		return content
	}
	lines := strings.Split(content, "\n")
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%5d| %s\n", offset+i+1, line)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
