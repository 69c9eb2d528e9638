package tool

import (
	"sync"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/logging"
	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/internal/workspace"
)

// Registry is the static tool catalog, registered once at process start.
// MCP-backed tools enter it only when a caller runs mcp.RegisterMCPTools;
// session boot does not add any.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	ws    workspace.Workspace
	store *storage.Storage
}

// NewRegistry creates an empty registry bound to ws for tools that need
// filesystem access and store for tools that need durable per-session state
// (todo lists).
func NewRegistry(ws workspace.Workspace, store *storage.Storage) *Registry {
	return &Registry{tools: make(map[string]Tool), ws: ws, store: store}
}

func (r *Registry) Storage() *storage.Storage { return r.store }

// Register adds or replaces a tool by ID.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Logger.Debug().Str("tool", t.ID()).Msg("registering tool")
	r.tools[t.ID()] = t
}

func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}

// Catalog returns the (name, description, input_schema, requires_approval)
// tuples the tool catalog is built from — what the Agent Executor hands to
// the LLM client as the tools list.
type CatalogEntry struct {
	Name             string
	Description      string
	InputSchema      []byte
	RequiresApproval bool
}

func (r *Registry) Catalog() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]CatalogEntry, 0, len(r.tools))
	for _, t := range r.tools {
		entries = append(entries, CatalogEntry{
			Name:             t.ID(),
			Description:      t.Description(),
			InputSchema:      t.Parameters(),
			RequiresApproval: t.RequiresApproval(),
		})
	}
	return entries
}

// DefaultRegistry builds a registry with every built-in tool
// registered, wired to ws and store. The task tool needs an agent registry
// and execution callback, wired separately via RegisterTaskTool since those
// aren't available until the agent registry and executor are constructed.
func DefaultRegistry(ws workspace.Workspace, store *storage.Storage) *Registry {
	r := NewRegistry(ws, store)

	r.Register(NewViewTool(ws))
	r.Register(NewListTool(ws))
	r.Register(NewGlobTool(ws))
	r.Register(NewGrepTool(ws))
	r.Register(NewAstGrepTool(ws))
	r.Register(NewEditFileTool(ws))
	r.Register(NewMultiEditFileTool(ws))
	r.Register(NewWriteFileTool(ws))
	r.Register(NewReplaceTool(ws))
	r.Register(NewBashTool(ws))
	r.Register(NewWebFetchTool())
	r.Register(NewTodoReadTool(store))
	r.Register(NewTodoWriteTool(store))
	r.Register(NewBatchTool(r))

	logging.Logger.Info().Int("count", len(r.tools)).Strs("tools", r.IDs()).Msg("default tool registry built")
	return r
}

// RegisterTaskTool adds the subagent-spawning "task" tool once an agent
// registry is available; the executor callback is wired
// afterward via SetTaskExecutor once the Agent Executor exists.
func (r *Registry) RegisterTaskTool(agentReg *agent.Registry) {
	r.Register(NewTaskTool(agentReg))
}

func (r *Registry) SetTaskExecutor(executor TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tools["task"]; ok {
		if task, ok := t.(*TaskTool); ok {
			task.SetExecutor(executor)
		}
	}
}
