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

func TestWriteFileTool_CreatesFile(t *testing.T) {
	ws, dir := newTestWorkspace(t)
	tool := NewWriteFileTool(ws)

	input := json.RawMessage(`{"file_path": "new.txt", "content": "hello"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.True(t, tool.RequiresApproval())

	data, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 5, result.Metadata["bytes"])
}

func TestWriteFileTool_MissingRequired(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewWriteFileTool(ws)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"file_path": "x.txt"}`), testContext())
	assert.Error(t, err)
}
