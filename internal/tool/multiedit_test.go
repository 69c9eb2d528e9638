package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiEditFileTool_SequentialEdits(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	path := filepath.Join(dir, "multi.txt")
	require.NoError(t, os.WriteFile(path, []byte("one two three"), 0644))

	tool := NewMultiEditFileTool(ws)
	input := json.RawMessage(`{
		"file_path": "multi.txt",
		"edits": [
			{"old_string": "one", "new_string": "1"},
			{"old_string": "three", "new_string": "3"}
		]
	}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Metadata["edit_count"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1 two 3", string(data))
}

func TestMultiEditFileTool_EmptyEditsRejected(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	path := filepath.Join(dir, "multi.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0644))

	tool := NewMultiEditFileTool(ws)
	input := json.RawMessage(`{"file_path": "multi.txt", "edits": []}`)
	_, err := tool.Execute(context.Background(), input, testContext())
	assert.Error(t, err)
}
