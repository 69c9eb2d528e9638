package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/pkg/types"
)

const todoReadDescription = `Reads the current todo list for this session.`

var todoReadSchema = json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)

// NewTodoReadTool reads a session's todo list from storage.
func NewTodoReadTool(store *storage.Storage) *BaseTool {
	return NewBaseTool("todo_read", todoReadDescription, todoReadSchema, false, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		var todos []types.TodoInfo
		err := store.Get(ctx, []string{"todo", toolCtx.SessionID}, &todos)
		if err == storage.ErrNotFound {
			todos = []types.TodoInfo{}
		} else if err != nil {
			return nil, fmt.Errorf("failed to get todos: %w", err)
		}

		nonCompleted := 0
		for _, todo := range todos {
			if todo.Status != types.TodoCompleted {
				nonCompleted++
			}
		}

		output, _ := json.MarshalIndent(todos, "", "  ")
		return &Result{
			Title:  fmt.Sprintf("%d todos", nonCompleted),
			Output: string(output),
			Metadata: map[string]any{
				"todos": todos,
			},
		}, nil
	})
}
