package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steerrt/agentrt/internal/event"
	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/pkg/types"
)

const todoWriteDescription = `Creates and updates a structured task list for the current session.

Usage:
- Replaces the entire todo list with the given entries
- Exactly one entry should be in_progress at a time
- Use this for multi-step or non-trivial work; skip it for single, trivial tasks`

var todoWriteSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"todos": {
			"type": "array",
			"description": "The updated todo list",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"content": {"type": "string"},
					"status": {"type": "string", "enum": ["pending", "in_progress", "completed"]},
					"priority": {"type": "string"}
				},
				"required": ["id", "content", "status"]
			}
		}
	},
	"required": ["todos"]
}`)

type todoWriteInput struct {
	Todos []types.TodoInfo `json:"todos"`
}

// NewTodoWriteTool replaces a session's todo list in storage.
func NewTodoWriteTool(store *storage.Storage) *BaseTool {
	return NewBaseTool("todo_write", todoWriteDescription, todoWriteSchema, true, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("todo_write", todoWriteSchema, input); err != nil {
			return nil, err
		}
		var params todoWriteInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		if err := store.Put(ctx, []string{"todo", toolCtx.SessionID}, params.Todos); err != nil {
			return nil, fmt.Errorf("failed to update todos: %w", err)
		}

		event.Publish(event.Event{
			Type: event.TodoUpdated,
			Data: map[string]any{
				"sessionID": toolCtx.SessionID,
				"todos":     params.Todos,
			},
		})

		nonCompleted := 0
		for _, todo := range params.Todos {
			if todo.Status != types.TodoCompleted {
				nonCompleted++
			}
		}

		output, _ := json.MarshalIndent(params.Todos, "", "  ")
		return &Result{
			Title:  fmt.Sprintf("%d todos", nonCompleted),
			Output: string(output),
			Metadata: map[string]any{
				"todos": params.Todos,
			},
		}, nil
	})
}
