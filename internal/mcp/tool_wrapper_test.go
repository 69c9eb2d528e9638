package mcp

import (
	"encoding/json"
	"testing"

	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/stretchr/testify/assert"
)

func newUnitRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	ws := workspace.NewLocalWorkspace("mcp-unit", t.TempDir(), false)
	return tool.NewRegistry(ws, storage.New(t.TempDir()))
}

func TestMCPToolWrapper_ImplementsInterface(t *testing.T) {
	mcpTool := Tool{
		Name:        "test_server_test_tool",
		Description: "A test tool",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"input":{"type":"string"}}}`),
	}

	wrapper := NewMCPToolWrapper(mcpTool, nil)

	// Verify interface compliance at compile time
	var _ tool.Tool = wrapper

	assert.Equal(t, "test_server_test_tool", wrapper.ID())
	assert.Equal(t, "A test tool", wrapper.Description())
	assert.NotNil(t, wrapper.Parameters())
	assert.True(t, wrapper.RequiresApproval())
}

func TestMCPToolWrapper_ID(t *testing.T) {
	tests := []struct {
		name     string
		toolName string
		want     string
	}{
		{
			name:     "simple name",
			toolName: "calculator_sum",
			want:     "calculator_sum",
		},
		{
			name:     "prefixed name",
			toolName: "server_name_tool_name",
			want:     "server_name_tool_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapper := NewMCPToolWrapper(Tool{Name: tt.toolName}, nil)
			assert.Equal(t, tt.want, wrapper.ID())
		})
	}
}

func TestMCPToolWrapper_Description(t *testing.T) {
	wrapper := NewMCPToolWrapper(Tool{
		Name:        "test",
		Description: "Test tool description",
	}, nil)

	assert.Equal(t, "Test tool description", wrapper.Description())
}

func TestMCPToolWrapper_Parameters(t *testing.T) {
	schema := json.RawMessage(`{"type":"object","properties":{"numbers":{"type":"array","description":"Numbers to add"}}}`)
	wrapper := NewMCPToolWrapper(Tool{
		Name:        "test",
		InputSchema: schema,
	}, nil)

	params := wrapper.Parameters()
	assert.NotNil(t, params)
	assert.JSONEq(t, string(schema), string(params))
}

func TestRegisterMCPTools_NilClient(t *testing.T) {
	registry := newUnitRegistry(t)

	// Should not panic with nil client
	RegisterMCPTools(nil, registry)

	// Registry should still be empty
	assert.Empty(t, registry.List())
}

func TestRegisterMCPTools_NilRegistry(t *testing.T) {
	client := NewClient()
	defer client.Close()

	// Should not panic with nil registry
	RegisterMCPTools(client, nil)
}

func TestRegisterMCPTools_NoServers(t *testing.T) {
	client := NewClient()
	defer client.Close()
	registry := newUnitRegistry(t)

	// Register with no connected servers
	RegisterMCPTools(client, registry)

	// Registry should be empty (no tools from MCP)
	assert.Empty(t, registry.List())
}
