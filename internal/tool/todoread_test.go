package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/steerrt/agentrt/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	return storage.New(t.TempDir())
}

func TestTodoReadTool_EmptyWhenUnset(t *testing.T) {
	store := newTestStorage(t)
	tool := NewTodoReadTool(store)
	assert.False(t, tool.RequiresApproval())

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	require.NoError(t, err)
	assert.Equal(t, "0 todos", result.Title)
}

func TestTodoReadTool_ReflectsWrites(t *testing.T) {
	store := newTestStorage(t)
	readTool := NewTodoReadTool(store)
	writeTool := NewTodoWriteTool(store)

	writeInput := json.RawMessage(`{"todos": [{"id": "1", "content": "do thing", "status": "pending"}]}`)
	_, err := writeTool.Execute(context.Background(), writeInput, testContext())
	require.NoError(t, err)

	result, err := readTool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	require.NoError(t, err)
	assert.Equal(t, "1 todos", result.Title)
}
