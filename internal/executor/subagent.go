package executor

import (
	"context"
	"fmt"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/pkg/types"
)

// SubagentDispatcher implements tool.TaskExecutor by running the requested
// subagent role through its own, independent Engine: a task invocation is
// stateless (spec's "task" tool), so it never touches a session's actor,
// journal, or message log, it just runs a bounded chat loop against the
// calling session's workspace and tool catalog and returns the final text.
type SubagentDispatcher struct {
	LLM       *llm.Registry
	Agents    *agent.Registry
	Tools     *tool.Registry
	Workspace workspace.Workspace

	// DefaultModel is used when neither the invocation nor the resolved
	// agent role names a model.
	DefaultModel types.ModelRef
}

// NewSubagentDispatcher returns a dispatcher that runs subagent turns
// against ws using reg's tool catalog, resolving models through llmReg and
// roles through agents.
func NewSubagentDispatcher(llmReg *llm.Registry, agents *agent.Registry, reg *tool.Registry, ws workspace.Workspace, defaultModel types.ModelRef) *SubagentDispatcher {
	return &SubagentDispatcher{LLM: llmReg, Agents: agents, Tools: reg, Workspace: ws, DefaultModel: defaultModel}
}

// ExecuteSubtask resolves agentName to a subagent role, picks its model,
// and drives one Engine.Run to completion, auto-approving every tool call
// since no human is present to answer an ApprovalRequested event for a
// nested run.
func (d *SubagentDispatcher) ExecuteSubtask(ctx context.Context, sessionID, agentName, prompt string, opts tool.TaskOptions) (*tool.TaskResult, error) {
	role, err := d.Agents.Get(agentName)
	if err != nil {
		return nil, fmt.Errorf("subagent role %q not found: %w", agentName, err)
	}
	if !role.IsSubagent() {
		return nil, fmt.Errorf("agent %q cannot run as a subagent (mode: %s)", agentName, role.Mode)
	}

	model, err := d.resolveModel(role, opts.Model)
	if err != nil {
		return nil, err
	}
	client, err := d.LLM.Get(model.ProviderID)
	if err != nil {
		return nil, err
	}

	runID := types.NewID()
	catalog := d.catalogFor(role)

	eng := New(Config{
		Client: client,
		Model:  model,
		Agent:  role,
		Tools:  catalog,
		System: SystemPrompt{Agent: role, Model: model, ProviderID: model.ProviderID, WorkDir: d.Workspace.WorkingDirectory()}.Build(),
		Approval: func(ctx context.Context, call types.ToolCall) (approval.Decision, error) {
			return approval.Approved, nil
		},
		Execution: DefaultExecutionFunc(d.Tools, d.Workspace, sessionID, func() string { return runID }, agentName, nil),
	})

	history := []types.Message{{
		ID:          types.NewID(),
		SessionID:   sessionID,
		Role:        types.RoleUser,
		UserContent: []types.UserContent{types.NewUserText(prompt)},
	}}

	produced, runErr := eng.Run(ctx, history)
	output := lastAssistantText(produced)

	if runErr != nil {
		return &tool.TaskResult{
			Output:    output,
			SessionID: runID,
			AgentID:   agentName,
			Error:     runErr.Error(),
			Metadata:  map[string]any{"description": opts.Description},
		}, nil
	}

	return &tool.TaskResult{
		Output:    output,
		SessionID: runID,
		AgentID:   agentName,
		Metadata:  map[string]any{"description": opts.Description, "steps": len(produced)},
	}, nil
}

// resolveModel honors, in priority order, an explicit "provider/model"
// override from the task invocation, the subagent role's own configured
// model, and finally the dispatcher's default.
func (d *SubagentDispatcher) resolveModel(role *agent.Agent, override string) (*types.Model, error) {
	ref := d.DefaultModel
	if role.Model != nil {
		ref = *role.Model
	}
	if override != "" {
		providerID, modelID := llm.ParseModelString(override)
		ref = types.ModelRef{ProviderID: providerID, ModelID: modelID}
	}
	if ref.ModelID == "" {
		return d.LLM.DefaultModel()
	}
	return d.LLM.GetModel(ref.ProviderID, ref.ModelID)
}

// catalogFor narrows the shared tool catalog to the tools role.ToolEnabled
// permits, matching the filtering a primary session turn applies.
func (d *SubagentDispatcher) catalogFor(role *agent.Agent) []tool.CatalogEntry {
	var out []tool.CatalogEntry
	for _, entry := range d.Tools.Catalog() {
		if role.ToolEnabled(entry.Name) {
			out = append(out, entry)
		}
	}
	return out
}

func lastAssistantText(msgs []types.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != types.RoleAssistant {
			continue
		}
		var text string
		for _, c := range msgs[i].AssistantContent {
			if c.Kind == types.AssistantContentText {
				text += c.Text
			}
		}
		if text != "" {
			return text
		}
	}
	return ""
}
