package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/workspace"
)

const multiEditFileDescription = `Performs multiple sequential find-and-replace edits on a single file.

Usage:
- file_path may be absolute or relative to the workspace root
- edits are applied in order; each one must match exactly once
- An empty old_string in the first edit creates the file with its new_string`

var multiEditFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"file_path": {"type": "string", "description": "Path to the file to edit"},
		"edits": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"old_string": {"type": "string"},
					"new_string": {"type": "string"}
				},
				"required": ["old_string", "new_string"]
			}
		}
	},
	"required": ["file_path", "edits"]
}`)

type multiEditFileInput struct {
	FilePath string `json:"file_path"`
	Edits    []struct {
		OldString string `json:"old_string"`
		NewString string `json:"new_string"`
	} `json:"edits"`
}

// NewMultiEditFileTool applies a sequence of find-and-replace edits in one
// locked pass through ws.
func NewMultiEditFileTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("multi_edit_file", multiEditFileDescription, multiEditFileSchema, true, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("multi_edit_file", multiEditFileSchema, input); err != nil {
			return nil, err
		}
		var params multiEditFileInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		if len(params.Edits) == 0 {
			return nil, apperror.ToolInvalidParams("multi_edit_file", "edits must contain at least one entry")
		}

		edits := make([]workspace.FileEdit, len(params.Edits))
		for i, e := range params.Edits {
			edits[i] = workspace.FileEdit{OldString: e.OldString, NewString: e.NewString}
		}

		result, err := ws.ApplyEdits(workspace.OpContext{Ctx: ctx, Op: "multi_edit_file"}, params.FilePath, edits)
		if err != nil {
			return nil, err
		}

		out := editResultToToolResult(result)
		out.Metadata["edit_count"] = len(edits)
		return out, nil
	})
}
