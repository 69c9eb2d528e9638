// Package tool implements the Tool Registry & Executor: a typed
// catalog of tools with JSON-schema inputs, an approval-gating execution
// pipeline, and the built-in tool set every agent role draws from.
package tool

import (
	"context"
	"encoding/json"

	"github.com/steerrt/agentrt/internal/workspace"
)

// Tool is the contract every built-in and MCP-bridged tool implements.
type Tool interface {
	ID() string
	Description() string
	// Parameters returns the tool's JSON Schema input shape.
	Parameters() json.RawMessage
	// RequiresApproval reports whether the executor must gate this call on
	// the session's approval policy before running it.
	RequiresApproval() bool
	Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)
}

// Context carries per-call identity, cancellation, and the workspace a tool
// executes against.
type Context struct {
	SessionID string
	MessageID string
	CallID    string
	Agent     string
	Workspace workspace.Workspace
	AbortCh   <-chan struct{}
	Extra     map[string]any

	OnMetadata func(title string, meta map[string]any)
}

// SetMetadata forwards an in-progress status update, if a callback is wired.
func (c *Context) SetMetadata(title string, meta map[string]any) {
	if c.OnMetadata != nil {
		c.OnMetadata(title, meta)
	}
}

// IsAborted reports whether the call's cancellation token has tripped.
func (c *Context) IsAborted() bool {
	select {
	case <-c.AbortCh:
		return true
	default:
		return false
	}
}

// WorkDir returns the tool's working directory, or "" if no workspace is set.
func (c *Context) WorkDir() string {
	if c.Workspace == nil {
		return ""
	}
	return c.Workspace.WorkingDirectory()
}

// Result is the output of a tool execution, narrowed by the executor into a
// ToolResult message-content variant.
type Result struct {
	Title       string         `json:"title"`
	Output      string         `json:"output"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Attachment is a file reference surfaced alongside a tool result.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

// BaseTool is a minimal Tool implementation built from a closure, used by
// tools with no extra state.
type BaseTool struct {
	id          string
	description string
	parameters  json.RawMessage
	approval    bool
	execute     func(context.Context, json.RawMessage, *Context) (*Result, error)
}

// NewBaseTool builds a Tool from its static fields and execute closure.
func NewBaseTool(id, description string, params json.RawMessage, requiresApproval bool, execute func(context.Context, json.RawMessage, *Context) (*Result, error)) *BaseTool {
	return &BaseTool{id: id, description: description, parameters: params, approval: requiresApproval, execute: execute}
}

func (t *BaseTool) ID() string                  { return t.id }
func (t *BaseTool) Description() string         { return t.description }
func (t *BaseTool) Parameters() json.RawMessage { return t.parameters }
func (t *BaseTool) RequiresApproval() bool      { return t.approval }

func (t *BaseTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	return t.execute(ctx, input, toolCtx)
}
