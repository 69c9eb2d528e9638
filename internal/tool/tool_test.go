package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	ch := make(chan struct{})
	return &Context{
		SessionID: "sess-1",
		MessageID: "msg-1",
		CallID:    "call-1",
		Agent:     "build",
		AbortCh:   ch,
		Extra:     map[string]any{},
	}
}

func TestContext_IsAborted(t *testing.T) {
	ch := make(chan struct{})
	ctx := &Context{AbortCh: ch}
	assert.False(t, ctx.IsAborted())

	close(ch)
	assert.True(t, ctx.IsAborted())
}

func TestContext_SetMetadata(t *testing.T) {
	var gotTitle string
	var gotMeta map[string]any
	ctx := &Context{
		OnMetadata: func(title string, meta map[string]any) {
			gotTitle = title
			gotMeta = meta
		},
	}
	ctx.SetMetadata("doing thing", map[string]any{"k": "v"})
	assert.Equal(t, "doing thing", gotTitle)
	assert.Equal(t, "v", gotMeta["k"])
}

func TestContext_SetMetadata_NoCallback(t *testing.T) {
	ctx := &Context{}
	ctx.SetMetadata("ignored", nil) // must not panic
}

func TestContext_WorkDir_NoWorkspace(t *testing.T) {
	ctx := &Context{}
	assert.Equal(t, "", ctx.WorkDir())
}

func TestBaseTool(t *testing.T) {
	params := json.RawMessage(`{"type":"object"}`)
	bt := NewBaseTool("mytool", "does a thing", params, true, func(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
		return &Result{Title: "done", Output: "ok"}, nil
	})

	assert.Equal(t, "mytool", bt.ID())
	assert.Equal(t, "does a thing", bt.Description())
	assert.Equal(t, params, bt.Parameters())
	assert.True(t, bt.RequiresApproval())

	result, err := bt.Execute(context.Background(), json.RawMessage(`{}`), testContext())
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
}
