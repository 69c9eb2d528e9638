package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steerrt/agentrt/internal/agent"
)

const taskDescription = `Launches a subagent to handle a complex, multi-step task autonomously.

Usage notes:
- Launch multiple subagents concurrently when independent
- Each subagent invocation is stateless; its final output is returned as the result
- Specify the desired thoroughness level in the prompt for exploration subagents`

var taskSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"description": {"type": "string", "description": "A short (3-5 word) description of the task"},
		"prompt": {"type": "string", "description": "The detailed task for the subagent to perform"},
		"subagent_type": {"type": "string", "description": "The registered subagent role to use"},
		"model": {"type": "string", "description": "Optional model override"},
		"resume": {"type": "string", "description": "Optional agent run ID to resume from"}
	},
	"required": ["description", "prompt", "subagent_type"]
}`)

// TaskExecutor runs a subagent turn and returns its final result. Wired in
// by the Agent Executor once constructed (SetExecutor), since the task tool
// itself only knows about role eligibility, not execution.
type TaskExecutor interface {
	ExecuteSubtask(ctx context.Context, sessionID, agentName, prompt string, opts TaskOptions) (*TaskResult, error)
}

// TaskOptions configures one subagent invocation.
type TaskOptions struct {
	Model       string
	ResumeFrom  string
	Description string
}

// TaskResult is a completed subagent run's outcome.
type TaskResult struct {
	Output    string         `json:"output"`
	SessionID string         `json:"sessionID"`
	AgentID   string         `json:"agentID,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type taskInput struct {
	Description  string `json:"description"`
	Prompt       string `json:"prompt"`
	SubagentType string `json:"subagent_type"`
	Model        string `json:"model,omitempty"`
	Resume       string `json:"resume,omitempty"`
}

// TaskTool spawns subagents for complex tasks.
type TaskTool struct {
	agentRegistry *agent.Registry
	executor      TaskExecutor
}

// NewTaskTool creates the task tool bound to the given agent role registry.
func NewTaskTool(registry *agent.Registry) *TaskTool {
	if registry == nil {
		registry = agent.NewRegistry()
	}
	return &TaskTool{agentRegistry: registry}
}

// SetExecutor wires the dispatcher used to actually run subagent turns.
func (t *TaskTool) SetExecutor(executor TaskExecutor) { t.executor = executor }

func (t *TaskTool) ID() string                  { return "task" }
func (t *TaskTool) Description() string         { return taskDescription }
func (t *TaskTool) Parameters() json.RawMessage { return taskSchema }
func (t *TaskTool) RequiresApproval() bool      { return false }

func (t *TaskTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	if err := ValidateParams("task", taskSchema, input); err != nil {
		return nil, err
	}
	var params taskInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	subagent, err := t.agentRegistry.Get(params.SubagentType)
	if err != nil {
		return nil, fmt.Errorf("unknown subagent type %q: %w", params.SubagentType, err)
	}
	if !subagent.IsSubagent() {
		return nil, fmt.Errorf("agent %q cannot be used as a subagent (mode: %s)", params.SubagentType, subagent.Mode)
	}

	toolCtx.SetMetadata(params.Description, map[string]any{
		"subagent": params.SubagentType,
		"status":   "starting",
	})

	if t.executor == nil {
		return &Result{
			Title:  fmt.Sprintf("Task: %s", params.Description),
			Output: fmt.Sprintf("subtask execution not configured\n\nagent: %s\nprompt: %s", params.SubagentType, params.Prompt),
			Metadata: map[string]any{
				"subagent":    params.SubagentType,
				"status":      "skipped",
				"description": params.Description,
			},
		}, nil
	}

	opts := TaskOptions{
		Model:       params.Model,
		ResumeFrom:  params.Resume,
		Description: params.Description,
	}

	result, err := t.executor.ExecuteSubtask(ctx, toolCtx.SessionID, params.SubagentType, params.Prompt, opts)
	if err != nil {
		return &Result{
			Title:  fmt.Sprintf("Subtask failed: %s", params.Description),
			Output: fmt.Sprintf("error: %s", err.Error()),
			Metadata: map[string]any{
				"subagent": params.SubagentType,
				"status":   "failed",
				"error":    err.Error(),
			},
		}, nil
	}

	metadata := map[string]any{
		"subagent": params.SubagentType,
		"status":   "completed",
	}
	if result.SessionID != "" {
		metadata["sessionID"] = result.SessionID
	}
	if result.AgentID != "" {
		metadata["agentID"] = result.AgentID
	}
	for k, v := range result.Metadata {
		metadata[k] = v
	}

	return &Result{
		Title:    fmt.Sprintf("Completed: %s", params.Description),
		Output:   result.Output,
		Metadata: metadata,
	}, nil
}

// AvailableAgents returns the registered subagent role names.
func (t *TaskTool) AvailableAgents() []string {
	agents := t.agentRegistry.ListSubagents()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}
