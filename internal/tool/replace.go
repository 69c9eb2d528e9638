package tool

import "github.com/steerrt/agentrt/internal/workspace"

const replaceDescription = `Alias for edit_file's single find-and-replace path, kept for SDK/client
compatibility with callers that name the tool "replace".`

// NewReplaceTool is an alias over edit_file's single-replace execution path.
func NewReplaceTool(ws workspace.Workspace) *BaseTool {
	return NewBaseTool("replace", replaceDescription, editFileSchema, true, editFileExecute("replace", ws))
}
