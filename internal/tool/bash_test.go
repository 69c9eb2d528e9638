package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/steerrt/agentrt/internal/workspace/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashTool_RunsCommand(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewBashTool(ws)
	assert.Equal(t, "bash", tool.ID())
	assert.True(t, tool.RequiresApproval())

	input := json.RawMessage(`{"command": "echo hello", "description": "say hello"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Contains(t, result.Output, "hello")
	assert.Equal(t, 0, result.Metadata["exit"])
}

func TestBashTool_NonZeroExit(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewBashTool(ws)

	input := json.RawMessage(`{"command": "exit 3", "description": "fail"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Metadata["exit"])
}

func TestBashTool_MissingRequired(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewBashTool(ws)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	assert.Error(t, err)
}

func TestBashTool_ExternalDirDenied(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewBashTool(ws)

	toolCtx := testContext()
	toolCtx.Workspace = ws
	toolCtx.Extra["policy"] = policy.Policy{ExternalDir: policy.ActionDeny}

	input := json.RawMessage(`{"command": "rm -rf /etc/passwd", "description": "dangerous"}`)
	_, err := tool.Execute(context.Background(), input, toolCtx)
	assert.Error(t, err)
}

func TestDetectShell_ReturnsNonEmpty(t *testing.T) {
	assert.NotEmpty(t, detectShell())
}
