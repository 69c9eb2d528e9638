// Package executor implements the Agent Executor chat loop: the
// provider-agnostic state machine that drives one turn of a conversation —
// call the model, stream deltas, dispatch tool calls through an
// approval/execution callback pair, and loop until the model stops asking
// for tools. It knows nothing about the session actor that owns it; the
// callbacks are how a caller plugs in approval gating, tool dispatch, and
// event delivery, so the loop itself stays testable in isolation.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/logging"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/pkg/types"
)

// DefaultMaxSteps bounds the number of model round-trips in a single turn,
// guarding against a model that never stops calling tools.
const DefaultMaxSteps = 50

// ApprovalFunc resolves a tool call that requires approval. Implementations
// typically publish an ApprovalRequested event and park on approval.Gate.
type ApprovalFunc func(ctx context.Context, call types.ToolCall) (approval.Decision, error)

// ExecutionFunc runs one tool call and returns its result. The default,
// DefaultExecutionFunc, dispatches through a tool.Registry.
type ExecutionFunc func(ctx context.Context, call types.ToolCall) (*tool.Result, error)

// EmitFunc receives one unsequenced event payload as the loop produces it.
// The caller (the session actor) assigns Seq and SessionID before journaling
// and broadcasting.
type EmitFunc func(kind types.EventPayloadKind, payload any)

// Config wires one Engine to the concrete pieces a given turn runs against.
type Config struct {
	Client   llm.Client
	Model    *types.Model
	Agent    *agent.Agent
	Tools    []tool.CatalogEntry
	System   string
	MaxSteps int

	Approval  ApprovalFunc
	Execution ExecutionFunc
	Emit      EmitFunc

	// AlreadyGranted reports whether call already carries an always-approve
	// grant, checked before Approval is ever invoked.
	AlreadyGranted func(call types.ToolCall) bool

	// DoomLoop flags a primary agent repeating an identical call; when it
	// fires the call is routed through Approval regardless of the agent's
	// static policy.
	DoomLoop func(toolName string, params json.RawMessage) bool
}

// Engine runs Config.MaxSteps model/tool round-trips for one turn.
type Engine struct {
	cfg Config
}

// New returns an Engine for one turn. MaxSteps defaults to DefaultMaxSteps.
func New(cfg Config) *Engine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Emit == nil {
		cfg.Emit = func(types.EventPayloadKind, any) {}
	}
	return &Engine{cfg: cfg}
}

// Run drives the chat loop starting from history (the conversation so far,
// ending in the user message that triggered this turn) and returns every
// message the loop produced — one or more assistant messages, interleaved
// with tool-result messages, ending in a final assistant message with no
// pending tool calls. On a terminal failure (model error, cancelled context,
// or MaxSteps exceeded) it emits OperationCompleted with a failed or
// cancelled outcome and returns the messages produced so far with the error;
// no closing message is synthesized.
func (e *Engine) Run(ctx context.Context, history []types.Message) ([]types.Message, error) {
	var produced []types.Message
	conversation := append([]types.Message(nil), history...)

	for step := 0; step < e.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			e.cfg.Emit(types.EventOperationCompleted, types.OperationCompletedPayload{
				Outcome: types.OutcomeCancelled,
			})
			return produced, err
		}

		assistantMsg, err := e.callModel(ctx, conversation)
		if err != nil {
			e.cfg.Emit(types.EventOperationCompleted, types.OperationCompletedPayload{
				Outcome: types.OutcomeFailed,
				Error:   err.Error(),
			})
			return produced, err
		}

		produced = append(produced, *assistantMsg)
		conversation = append(conversation, *assistantMsg)
		e.cfg.Emit(types.EventMessageAdded, types.MessageAddedPayload{
			Message: assistantMsg,
			Model:   e.cfg.Model.ID,
		})

		calls := toolCalls(assistantMsg)
		if len(calls) == 0 {
			e.cfg.Emit(types.EventOperationCompleted, types.OperationCompletedPayload{Outcome: types.OutcomeSuccess})
			return produced, nil
		}

		results, err := e.runToolCalls(ctx, assistantMsg.ID, calls)
		if err != nil {
			e.cfg.Emit(types.EventOperationCompleted, types.OperationCompletedPayload{
				Outcome: types.OutcomeFailed,
				Error:   err.Error(),
			})
			return produced, err
		}
		for _, msg := range results {
			produced = append(produced, msg)
			conversation = append(conversation, msg)
			e.cfg.Emit(types.EventMessageAdded, types.MessageAddedPayload{Message: &msg})
		}
	}

	err := fmt.Errorf("agent executor: exceeded max steps (%d)", e.cfg.MaxSteps)
	e.cfg.Emit(types.EventOperationCompleted, types.OperationCompletedPayload{
		Outcome: types.OutcomeFailed,
		Error:   err.Error(),
	})
	return produced, err
}

func (e *Engine) callModel(ctx context.Context, conversation []types.Message) (*types.Message, error) {
	req := llm.CompletionRequest{
		Model:    e.cfg.Model,
		Messages: conversation,
		Tools:    e.cfg.Tools,
		System:   e.cfg.System,
	}
	if e.cfg.Agent != nil {
		req.Temperature = e.cfg.Agent.Temperature
	}

	assistantMsgID := types.NewID()
	msg, err := e.cfg.Client.Complete(ctx, req, func(ev llm.StreamEvent) {
		switch ev.Kind {
		case llm.TextDelta:
			e.cfg.Emit(types.EventMessageDelta, types.MessageDeltaPayload{MessageID: assistantMsgID, Delta: ev.Text})
		case llm.ThinkingDelta:
			e.cfg.Emit(types.EventThinkingDelta, types.ThinkingDeltaPayload{MessageID: assistantMsgID, Delta: ev.Text})
		case llm.ToolCallDelta:
			e.cfg.Emit(types.EventToolCallDelta, types.ToolCallDeltaPayload{
				MessageID: assistantMsgID, ToolCallID: ev.ToolCallID, Delta: ev.ArgsDelta,
			})
		}
	})
	if err != nil {
		return nil, classifyModelError(err)
	}
	msg.ID = assistantMsgID
	return msg, nil
}

func classifyModelError(err error) error {
	if apperror.Is(err, apperror.KindAuth) || apperror.Is(err, apperror.KindLlmProvider) {
		return err
	}
	return apperror.LlmProvider("", err.Error(), err)
}

func toolCalls(msg *types.Message) []types.ToolCall {
	var calls []types.ToolCall
	for _, c := range msg.AssistantContent {
		if c.Kind == types.AssistantContentToolCall && c.ToolCall != nil {
			calls = append(calls, *c.ToolCall)
		}
	}
	return calls
}

// runToolCalls executes every call in appearance order and returns one tool-role message per call, synthesizing
// an error result instead of failing the turn when an individual call is
// unknown, denied, or errors.
func (e *Engine) runToolCalls(ctx context.Context, assistantMsgID string, calls []types.ToolCall) ([]types.Message, error) {
	msgs := make([]types.Message, 0, len(calls))

	for _, call := range calls {
		e.cfg.Emit(types.EventToolStarted, types.ToolStartedPayload{
			ToolCallID: call.ID, Name: call.Name, Parameters: decodeParams(call.ParametersRaw),
		})

		result := e.dispatchOne(ctx, call)

		msgs = append(msgs, types.Message{
			ID:        types.NewID(),
			Role:      types.RoleTool,
			ToolUseID: call.ID,
			Result:    &result,
		})

		if result.IsError() {
			e.cfg.Emit(types.EventToolFailed, types.ToolFailedPayload{
				ToolCallID: call.ID, Name: call.Name, Error: result.Payload,
			})
		} else {
			e.cfg.Emit(types.EventToolCompleted, types.ToolCompletedPayload{
				ToolCallID: call.ID, Name: call.Name, Result: result,
			})
		}
	}

	return msgs, nil
}

// dispatchOne resolves approval and runs a single call, always returning a
// ToolResult — errors at any stage become ToolResultError rather than
// propagating, so one bad call can't abort the whole turn.
func (e *Engine) dispatchOne(ctx context.Context, call types.ToolCall) types.ToolResult {
	needsApproval := e.requiresApproval(call)
	if needsApproval {
		granted := e.cfg.AlreadyGranted != nil && e.cfg.AlreadyGranted(call)
		if !granted {
			if e.cfg.Approval == nil {
				return types.Error(apperror.ToolCancelled(call.Name).Error())
			}
			decision, err := e.cfg.Approval(ctx, call)
			if err != nil {
				return types.Error(apperror.ToolCancelled(call.Name).Error())
			}
			if decision == approval.Denied {
				return types.Error(fmt.Sprintf("%s: denied by user", call.Name))
			}
		}
	}

	if e.cfg.Execution == nil {
		return types.Error(apperror.ToolUnknown(call.Name).Error())
	}
	result, err := e.cfg.Execution(ctx, call)
	if err != nil {
		logging.Logger.Warn().Str("tool", call.Name).Err(err).Msg("tool execution failed")
		return types.Error(err.Error())
	}
	return types.Success(result.Output)
}

func (e *Engine) requiresApproval(call types.ToolCall) bool {
	if e.cfg.DoomLoop != nil && e.cfg.DoomLoop(call.Name, call.ParametersRaw) {
		return true
	}
	for _, t := range e.cfg.Tools {
		if t.Name == call.Name {
			return t.RequiresApproval
		}
	}
	return false
}

func decodeParams(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// DefaultExecutionFunc builds an ExecutionFunc dispatching through reg
// against a Context template (SessionID/Agent/Workspace), filling CallID from
// each call and MessageID from currentMessageID at dispatch time, since the
// assistant message a tool call belongs to isn't known until its streamed ID
// arrives.
func DefaultExecutionFunc(reg *tool.Registry, ws workspace.Workspace, sessionID string, currentMessageID func() string, agentName string, abortCh <-chan struct{}) ExecutionFunc {
	return func(ctx context.Context, call types.ToolCall) (*tool.Result, error) {
		t, ok := reg.Get(call.Name)
		if !ok {
			return nil, apperror.ToolUnknown(call.Name)
		}
		var messageID string
		if currentMessageID != nil {
			messageID = currentMessageID()
		}
		toolCtx := &tool.Context{
			SessionID: sessionID,
			MessageID: messageID,
			CallID:    call.ID,
			Agent:     agentName,
			Workspace: ws,
			AbortCh:   abortCh,
		}
		result, err := t.Execute(ctx, call.ParametersRaw, toolCtx)
		if err != nil {
			return nil, apperror.ToolExecution(call.Name, err)
		}
		return result, nil
	}
}
