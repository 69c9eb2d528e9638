package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/pkg/types"
)

// scriptedClient returns one message per Complete call, in call order.
type scriptedClient struct {
	responses []*types.Message
	i         int
}

func (c *scriptedClient) ID() string            { return "fake" }
func (c *scriptedClient) Name() string          { return "fake" }
func (c *scriptedClient) Models() []types.Model { return nil }

func (c *scriptedClient) Complete(ctx context.Context, req llm.CompletionRequest, sink llm.StreamSink) (*types.Message, error) {
	if c.i >= len(c.responses) {
		return nil, errors.New("scriptedClient: no more responses scripted")
	}
	msg := c.responses[c.i]
	c.i++
	return msg, nil
}

// loopingClient always returns a tool call, to exercise the max-steps guard.
type loopingClient struct{}

func (c *loopingClient) ID() string            { return "fake" }
func (c *loopingClient) Name() string          { return "fake" }
func (c *loopingClient) Models() []types.Model { return nil }

func (c *loopingClient) Complete(ctx context.Context, req llm.CompletionRequest, sink llm.StreamSink) (*types.Message, error) {
	return toolCallMsg("c1", "bash"), nil
}

func textMsg(text string) *types.Message {
	return &types.Message{
		Role:             types.RoleAssistant,
		AssistantContent: []types.AssistantContent{{Kind: types.AssistantContentText, Text: text}},
	}
}

func toolCallMsg(callID, name string) *types.Message {
	return &types.Message{
		Role: types.RoleAssistant,
		AssistantContent: []types.AssistantContent{
			{Kind: types.AssistantContentToolCall, ToolCall: &types.ToolCall{ID: callID, Name: name}},
		},
	}
}

func newModel() *types.Model { return &types.Model{ID: "m1", ProviderID: "fake"} }

func TestEngine_RunStopsWhenModelProducesNoToolCalls(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{textMsg("done")}}

	eng := New(Config{Client: client, Model: newModel()})
	produced, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(produced) != 1 || produced[0].AssistantContent[0].Text != "done" {
		t.Fatalf("unexpected produced messages: %+v", produced)
	}
}

func TestEngine_RunDispatchesToolCallAndLoopsAgain(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{
		toolCallMsg("c1", "echo"),
		textMsg("final"),
	}}

	executed := false
	eng := New(Config{
		Client: client,
		Model:  newModel(),
		Execution: func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
			executed = true
			if call.Name != "echo" {
				t.Fatalf("unexpected tool name %q", call.Name)
			}
			return &tool.Result{Output: "ok"}, nil
		},
	})

	produced, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !executed {
		t.Fatal("expected the tool call to be executed")
	}
	if len(produced) != 3 {
		t.Fatalf("expected assistant+tool+assistant, got %d messages", len(produced))
	}
	if produced[1].Role != types.RoleTool || produced[1].Result.Payload != "ok" {
		t.Fatalf("unexpected tool-result message: %+v", produced[1])
	}
}

func TestEngine_RunReturnsSynthesizedErrorOnToolFailureWithoutAbortingTurn(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{
		toolCallMsg("c1", "bash"),
		textMsg("recovered"),
	}}

	eng := New(Config{
		Client: client,
		Model:  newModel(),
		Execution: func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
			return nil, errors.New("boom")
		},
	})

	produced, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("a single bad tool call should not fail the turn: %v", err)
	}
	if !produced[1].Result.IsError() {
		t.Fatalf("expected a synthesized error tool result, got %+v", produced[1].Result)
	}
}

func TestEngine_RunDeniedApprovalProducesErrorResult(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{
		toolCallMsg("c1", "bash"),
		textMsg("final"),
	}}

	eng := New(Config{
		Client: client,
		Model:  newModel(),
		Tools:  []tool.CatalogEntry{{Name: "bash", RequiresApproval: true}},
		Approval: func(ctx context.Context, call types.ToolCall) (approval.Decision, error) {
			return approval.Denied, nil
		},
	})

	produced, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !produced[1].Result.IsError() {
		t.Fatalf("expected denied approval to produce an error result, got %+v", produced[1].Result)
	}
}

func TestEngine_RunAlreadyGrantedSkipsApproval(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{
		toolCallMsg("c1", "bash"),
		textMsg("final"),
	}}

	approvalCalled := false
	eng := New(Config{
		Client: client,
		Model:  newModel(),
		Tools:  []tool.CatalogEntry{{Name: "bash", RequiresApproval: true}},
		Approval: func(ctx context.Context, call types.ToolCall) (approval.Decision, error) {
			approvalCalled = true
			return approval.Approved, nil
		},
		AlreadyGranted: func(call types.ToolCall) bool { return true },
		Execution: func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
			return &tool.Result{Output: "ok"}, nil
		},
	})

	_, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approvalCalled {
		t.Fatal("expected AlreadyGranted to short-circuit the approval callback")
	}
}

func TestEngine_RunStopsAtMaxSteps(t *testing.T) {
	client := &loopingClient{}

	eng := New(Config{
		Client:   client,
		Model:    newModel(),
		MaxSteps: 3,
		Execution: func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
			return &tool.Result{Output: "ok"}, nil
		},
	})

	_, err := eng.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error once MaxSteps is exceeded")
	}
}

func TestEngine_RunPropagatesContextCancellation(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{textMsg("unused")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(Config{Client: client, Model: newModel()})
	_, err := eng.Run(ctx, nil)
	if err == nil {
		t.Fatal("expected Run to report the cancelled context")
	}
}

func TestEngine_RunDoomLoopForcesApprovalDespiteStaticPolicy(t *testing.T) {
	client := &scriptedClient{responses: []*types.Message{
		toolCallMsg("c1", "bash"),
		textMsg("final"),
	}}

	approvalCalled := false
	eng := New(Config{
		Client: client,
		Model:  newModel(),
		Tools:  []tool.CatalogEntry{{Name: "bash", RequiresApproval: false}},
		DoomLoop: func(name string, params json.RawMessage) bool {
			return true
		},
		Approval: func(ctx context.Context, call types.ToolCall) (approval.Decision, error) {
			approvalCalled = true
			return approval.Approved, nil
		},
		Execution: func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
			return &tool.Result{Output: "ok"}, nil
		},
	})

	_, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approvalCalled {
		t.Fatal("expected DoomLoop to force the call through Approval")
	}
}
