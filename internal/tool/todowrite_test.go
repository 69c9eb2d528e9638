package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoWriteTool_PersistsAndCountsNonCompleted(t *testing.T) {
	store := newTestStorage(t)
	tool := NewTodoWriteTool(store)
	assert.True(t, tool.RequiresApproval())

	input := json.RawMessage(`{"todos": [
		{"id": "1", "content": "a", "status": "completed"},
		{"id": "2", "content": "b", "status": "in_progress"}
	]}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Equal(t, "1 todos", result.Title)
}

func TestTodoWriteTool_MissingRequired(t *testing.T) {
	store := newTestStorage(t)
	tool := NewTodoWriteTool(store)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	assert.Error(t, err)
}
