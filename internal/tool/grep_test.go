package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrepTool_RequiresPattern(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewGrepTool(ws)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	assert.Error(t, err)
}

func TestGrepTool_Metadata(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewGrepTool(ws)
	assert.Equal(t, "grep", tool.ID())
	assert.False(t, tool.RequiresApproval())
}

func TestAstGrepTool_RequiresPattern(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	tool := NewAstGrepTool(ws)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	assert.Error(t, err)
	assert.Equal(t, "ast_grep", tool.ID())
}
