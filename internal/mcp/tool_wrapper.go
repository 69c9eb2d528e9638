// Package mcp provides Model Context Protocol (MCP) client functionality.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/steerrt/agentrt/internal/tool"
)

// ToolWrapper adapts an MCP tool to the runtime's tool.Tool interface so it
// can be registered in the ordinary tool registry and dispatched by the
// agent executor exactly like a built-in tool.
type ToolWrapper struct {
	mcpTool Tool    // metadata, already carrying the server-prefixed name from client.Tools()
	client  *Client // execution target
}

// NewMCPToolWrapper creates a wrapper for an MCP tool.
func NewMCPToolWrapper(mcpTool Tool, client *Client) *ToolWrapper {
	return &ToolWrapper{
		mcpTool: mcpTool,
		client:  client,
	}
}

// ID returns the prefixed tool name (e.g., "serverName_toolName").
func (w *ToolWrapper) ID() string {
	return w.mcpTool.Name
}

// Description returns the tool description.
func (w *ToolWrapper) Description() string {
	return w.mcpTool.Description
}

// Parameters returns the JSON Schema for tool parameters.
func (w *ToolWrapper) Parameters() json.RawMessage {
	return w.mcpTool.InputSchema
}

// RequiresApproval gates every MCP tool call behind the approval policy: the
// runtime has no way to know whether a given server tool is read-only or
// mutating, so it treats all of them as side-effecting, the same posture it
// takes with bash and webfetch.
func (w *ToolWrapper) RequiresApproval() bool { return true }

// Execute runs the tool through the MCP client.
func (w *ToolWrapper) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	output, err := w.client.ExecuteTool(ctx, w.mcpTool.Name, input)
	if err != nil {
		return nil, err
	}

	if toolCtx != nil {
		toolCtx.SetMetadata(w.mcpTool.Name, map[string]any{
			"type": "mcp",
			"tool": w.mcpTool.Name,
		})
	}

	return &tool.Result{
		Title:  w.mcpTool.Name,
		Output: output,
	}, nil
}

// RegisterMCPTools fetches every tool exposed by client's connected servers
// and registers a ToolWrapper for each in registry.
func RegisterMCPTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}

	for _, mcpTool := range client.Tools() {
		registry.Register(NewMCPToolWrapper(mcpTool, client))
	}
}
