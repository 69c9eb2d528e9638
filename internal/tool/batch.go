package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const batchDescription = `Executes multiple independent tool calls concurrently to reduce latency. Best used for gathering context (reads, searches, listings).

Payload Format (JSON array):
[{"tool": "view", "parameters": {"file_path": "src/index.go", "limit": 350}},{"tool": "grep", "parameters": {"pattern": "func Run", "glob": "**/*.go"}},{"tool": "bash", "parameters": {"command": "git status", "description": "Shows working tree status"}}]

Rules:
- 1-10 tool calls per batch
- All calls start in parallel; ordering NOT guaranteed
- Partial failures do not stop others

Disallowed Tools:
- batch (no nesting)
- edit_file (run edits separately)
- todo_read (call directly - lightweight)

When NOT to Use:
- Operations that depend on prior tool output (e.g. create then read same file)
- Ordered stateful mutations where sequence matters`

const maxBatchSize = 10

// disallowedTools cannot be executed inside a batch.
var disallowedTools = map[string]bool{
	"batch":     true,
	"edit_file": true,
	"todo_read": true,
}

// filteredFromSuggestions is hidden from the "available tools" error hint.
var filteredFromSuggestions = map[string]bool{
	"batch":     true,
	"edit_file": true,
	"todo_read": true,
}

var batchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"tool_calls": {
			"type": "array",
			"description": "Array of tool calls to execute in parallel",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"tool": {"type": "string", "description": "The name of the tool to execute"},
					"parameters": {"type": "object", "description": "Parameters for the tool"}
				},
				"required": ["tool", "parameters"]
			}
		}
	},
	"required": ["tool_calls"]
}`)

type batchToolCall struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

type batchInput struct {
	ToolCalls []batchToolCall `json:"tool_calls"`
}

type batchResult struct {
	Index   int
	Tool    string
	Success bool
	Result  *Result
	Error   string
	Time    time.Duration
}

// BatchTool dispatches several independent tool calls concurrently — it
// itself bypasses approval since each dispatched call is gated individually.
type BatchTool struct {
	registry *Registry
}

// NewBatchTool creates the batch tool bound to registry, used to look up and
// dispatch the tools named in each call.
func NewBatchTool(registry *Registry) *BatchTool {
	return &BatchTool{registry: registry}
}

func (t *BatchTool) ID() string                  { return "batch" }
func (t *BatchTool) Description() string         { return batchDescription }
func (t *BatchTool) Parameters() json.RawMessage { return batchSchema }
func (t *BatchTool) RequiresApproval() bool      { return false }

func (t *BatchTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params batchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w\n\nExpected payload format:\n  [{\"tool\": \"tool_name\", \"parameters\": {...}}, {...}]", err)
	}
	if len(params.ToolCalls) == 0 {
		return nil, fmt.Errorf("tool_calls array must contain at least one tool call")
	}

	toolCalls := params.ToolCalls
	var discardedCalls []batchToolCall
	if len(toolCalls) > maxBatchSize {
		discardedCalls = toolCalls[maxBatchSize:]
		toolCalls = toolCalls[:maxBatchSize]
	}

	availableTools := t.getAvailableToolsList()

	results := make([]*batchResult, len(toolCalls))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range toolCalls {
		i, call := i, call
		g.Go(func() error {
			result := t.executeCall(gctx, i, call, toolCtx, availableTools)
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, call := range discardedCalls {
		results = append(results, &batchResult{
			Index:   maxBatchSize + i,
			Tool:    call.Tool,
			Success: false,
			Error:   "maximum of 10 tools allowed in batch",
		})
	}

	return t.formatResults(results, params.ToolCalls)
}

func (t *BatchTool) executeCall(ctx context.Context, index int, call batchToolCall, toolCtx *Context, availableTools []string) *batchResult {
	start := time.Now()
	result := &batchResult{Index: index, Tool: call.Tool}
	defer func() { result.Time = time.Since(start) }()

	if disallowedTools[call.Tool] {
		result.Error = fmt.Sprintf("tool %q is not allowed in batch. Disallowed tools: %s",
			call.Tool, strings.Join(getDisallowedToolsList(), ", "))
		return result
	}

	tl, ok := t.registry.Get(call.Tool)
	if !ok {
		result.Error = fmt.Sprintf("tool %q not found. Available tools: %s",
			call.Tool, strings.Join(availableTools, ", "))
		return result
	}

	callCtx := &Context{
		SessionID: toolCtx.SessionID,
		MessageID: toolCtx.MessageID,
		CallID:    fmt.Sprintf("%s-batch-%d", toolCtx.CallID, index),
		Agent:     toolCtx.Agent,
		Workspace: toolCtx.Workspace,
		AbortCh:   toolCtx.AbortCh,
		Extra:     toolCtx.Extra,
	}

	toolResult, err := tl.Execute(ctx, call.Parameters, callCtx)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Result = toolResult
	return result
}

func (t *BatchTool) formatResults(results []*batchResult, originalCalls []batchToolCall) (*Result, error) {
	successCount := 0
	var allAttachments []Attachment
	var outputParts []string

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	details := make([]map[string]any, 0, len(results))
	for _, r := range results {
		detail := map[string]any{
			"tool":    r.Tool,
			"success": r.Success,
			"time_ms": r.Time.Milliseconds(),
		}
		if r.Success {
			successCount++
			if r.Result != nil {
				outputParts = append(outputParts, fmt.Sprintf("=== %s (success) ===\n%s", r.Tool, r.Result.Output))
				allAttachments = append(allAttachments, r.Result.Attachments...)
				detail["title"] = r.Result.Title
			}
		} else {
			outputParts = append(outputParts, fmt.Sprintf("=== %s (failed) ===\n%s", r.Tool, r.Error))
			detail["error"] = r.Error
		}
		details = append(details, detail)
	}

	failedCount := len(results) - successCount
	var outputMessage string
	if failedCount > 0 {
		outputMessage = fmt.Sprintf("Executed %d/%d tools successfully. %d failed.\n\n%s",
			successCount, len(results), failedCount, strings.Join(outputParts, "\n\n"))
	} else {
		outputMessage = fmt.Sprintf("All %d tools executed successfully.\n\n%s",
			successCount, strings.Join(outputParts, "\n\n"))
	}

	toolNames := make([]string, len(originalCalls))
	for i, call := range originalCalls {
		toolNames[i] = call.Tool
	}

	return &Result{
		Title:       fmt.Sprintf("Batch execution (%d/%d successful)", successCount, len(results)),
		Output:      outputMessage,
		Attachments: allAttachments,
		Metadata: map[string]any{
			"totalCalls": len(results),
			"successful": successCount,
			"failed":     failedCount,
			"tools":      toolNames,
			"details":    details,
		},
	}, nil
}

func (t *BatchTool) getAvailableToolsList() []string {
	tools := t.registry.List()
	available := make([]string, 0, len(tools))
	for _, tl := range tools {
		if !filteredFromSuggestions[tl.ID()] {
			available = append(available, tl.ID())
		}
	}
	sort.Strings(available)
	return available
}

func getDisallowedToolsList() []string {
	list := make([]string, 0, len(disallowedTools))
	for tl := range disallowedTools {
		list = append(list, tl)
	}
	sort.Strings(list)
	return list
}
