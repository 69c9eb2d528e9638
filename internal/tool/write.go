package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/steerrt/agentrt/internal/workspace"
)

const writeFileDescription = `Writes content to a file, overwriting it if it exists.

Usage:
- file_path may be absolute or relative to the workspace root
- Parent directories are created if they don't exist
- Prefer edit_file over write_file when modifying an existing file`

var writeFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {"type": "string", "description": "Path to the file to write"},
		"content": {"type": "string", "description": "The content to write"}
	},
	"required": ["file_path", "content"]
}`)

type writeFileInput struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// NewWriteFileTool overwrites a file through ws.
func NewWriteFileTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("write_file", writeFileDescription, writeFileSchema, true, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("write_file", writeFileSchema, input); err != nil {
			return nil, err
		}
		var params writeFileInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		if err := ws.WriteFile(workspace.OpContext{Ctx: ctx, Op: "write_file"}, params.FilePath, params.Content); err != nil {
			return nil, err
		}

		return &Result{
			Title:  fmt.Sprintf("Wrote %s", filepath.Base(params.FilePath)),
			Output: fmt.Sprintf("wrote %d bytes to %s", len(params.Content), params.FilePath),
			Metadata: map[string]any{
				"file":  params.FilePath,
				"bytes": len(params.Content),
			},
		}, nil
	})
}
