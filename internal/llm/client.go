package llm

import (
	"context"

	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/pkg/types"
)

// EventKind discriminates the deltas a Client forwards to a StreamSink while
// a completion is in flight.
type EventKind string

const (
	// TextDelta carries a chunk of assistant text.
	TextDelta EventKind = "text_delta"
	// ThinkingDelta carries a chunk of extended-thinking / reasoning text.
	ThinkingDelta EventKind = "thinking_delta"
	// ToolCallStart announces a new tool call's id and name; argument JSON
	// follows as ToolCallDelta events against the same ToolCallID.
	ToolCallStart EventKind = "tool_call_start"
	// ToolCallDelta carries a fragment of a tool call's argument JSON.
	ToolCallDelta EventKind = "tool_call_delta"
)

// StreamEvent is one unit forwarded to a StreamSink during Complete.
type StreamEvent struct {
	Kind EventKind

	Text string

	ToolCallID   string
	ToolCallName string
	ArgsDelta    string
}

// StreamSink receives ordered StreamEvents for one in-progress completion.
type StreamSink func(StreamEvent)

// CompletionRequest is the provider-agnostic shape of one LLM call.
type CompletionRequest struct {
	Model       *types.Model
	Messages    []types.Message
	Tools       []tool.CatalogEntry
	System      string
	MaxTokens   int
	Temperature float64
}

// Client is the contract every wired provider backend implements:
// complete(model, messages, tools, system_prompt, stream_sink) → final_message.
type Client interface {
	ID() string
	Name() string
	Models() []types.Model

	// Complete drives one non-streamed-to-caller-but-internally-streamed
	// completion, forwarding deltas to sink as they arrive and returning the
	// final assembled assistant message once the stream ends.
	Complete(ctx context.Context, req CompletionRequest, sink StreamSink) (*types.Message, error)
}
