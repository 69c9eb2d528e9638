package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/steerrt/agentrt/internal/workspace"
)

const listDescription = `Lists files and directories in a specified path.

Usage:
- Returns file and directory names for the given path
- Useful for exploring directory structure`

var listSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "Directory to list (default: workspace root)"}
	}
}`)

type listInput struct {
	Path string `json:"path,omitempty"`
}

// NewListTool lists directory contents through ws.
func NewListTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("ls", listDescription, listSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		var params listInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &params); err != nil {
				return nil, fmt.Errorf("invalid input: %w", err)
			}
		}

		entries, err := ws.ListDirectory(workspace.OpContext{Ctx: ctx, Op: "ls"}, params.Path)
		if err != nil {
			return nil, err
		}

		return &Result{
			Title:  fmt.Sprintf("Listed %d items", len(entries)),
			Output: strings.Join(entries, "\n"),
			Metadata: map[string]any{
				"path":  params.Path,
				"count": len(entries),
			},
		}, nil
	})
}
