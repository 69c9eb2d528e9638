package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/cenkalti/backoff/v4"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/pkg/types"
)

// AnthropicClient talks to Claude models through the official Anthropic Go
// SDK, with no intermediate framework between this package and the wire
// format.
type AnthropicClient struct {
	id     string
	client anthropic.Client
	models []types.Model
}

// AnthropicConfig configures one Anthropic-backed Client.
type AnthropicConfig struct {
	// ID is the provider identifier used for routing (e.g. "anthropic").
	// Defaults to "anthropic" when empty, which lets a config name an
	// Anthropic-compatible endpoint something else while still resolving
	// models correctly.
	ID      string
	APIKey  string
	BaseURL string
}

// NewAnthropicClient builds a Client from config. The API key must already
// be resolved by the caller (the credential store).
func NewAnthropicClient(config AnthropicConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, apperror.Auth("anthropic: API key is required", nil)
	}

	id := config.ID
	if id == "" {
		id = "anthropic"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		id:     id,
		client: anthropic.NewClient(opts...),
		models: anthropicModels(id),
	}, nil
}

func (c *AnthropicClient) ID() string            { return c.id }
func (c *AnthropicClient) Name() string          { return "Anthropic" }
func (c *AnthropicClient) Models() []types.Model { return c.models }

// Complete implements Client. It retries stream establishment failures under
// the shared backoff policy as long as no delta has yet reached sink; once a
// delta is forwarded the attempt is no longer safely retryable, matching how
// the pack's other agent runtimes draw the line.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest, sink StreamSink) (*types.Message, error) {
	if req.Model == nil {
		return nil, apperror.LlmProvider("invalid_request", "no model selected", nil)
	}

	messages, err := anthropicMessages(req.Messages)
	if err != nil {
		return nil, apperror.LlmProvider("invalid_request", "failed to convert messages", err)
	}

	tools, err := anthropicTools(req.Tools)
	if err != nil {
		return nil, apperror.LlmProvider("invalid_request", "failed to convert tools", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model.ID),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	b := newBackoff(ctx)
	for {
		stream := c.client.Messages.NewStreaming(ctx, params)
		msg, emitted, streamErr := consumeAnthropicStream(stream, sink, req.Model.ID)
		if streamErr == nil {
			return msg, nil
		}

		wrapped := wrapAnthropicErr(streamErr, req.Model.ID)
		if emitted || !isRetryable(streamErr) {
			return nil, wrapped
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			return nil, wrapped
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
}

// consumeAnthropicStream drains one streaming attempt, forwarding deltas to
// sink and assembling the final assistant message. The returned bool reports
// whether any delta was forwarded, which governs whether a failed attempt
// may be retried.
func consumeAnthropicStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], sink StreamSink, modelID string) (*types.Message, bool, error) {
	var content []types.AssistantContent
	var textBuf, thinkingBuf, toolArgsBuf strings.Builder
	var toolID, toolName string
	inText, inThinking, inTool := false, false, false
	var tokens types.TokenUsage
	emitted := false

	flush := func() {
		switch {
		case inText:
			content = append(content, types.AssistantContent{Kind: types.AssistantContentText, Text: textBuf.String()})
			textBuf.Reset()
			inText = false
		case inThinking:
			content = append(content, types.AssistantContent{Kind: types.AssistantContentThought, Text: thinkingBuf.String()})
			thinkingBuf.Reset()
			inThinking = false
		case inTool:
			content = append(content, types.AssistantContent{
				Kind: types.AssistantContentToolCall,
				ToolCall: &types.ToolCall{
					ID:            toolID,
					Name:          toolName,
					ParametersRaw: json.RawMessage(toolArgsBuf.String()),
				},
			})
			toolArgsBuf.Reset()
			inTool = false
		}
	}

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			tokens.Input = int(ms.Message.Usage.InputTokens)

		case "content_block_start":
			cbs := event.AsContentBlockStart()
			switch cbs.ContentBlock.Type {
			case "thinking":
				inThinking = true
			case "tool_use":
				tu := cbs.ContentBlock.AsToolUse()
				toolID, toolName = tu.ID, tu.Name
				inTool = true
				if sink != nil {
					sink(StreamEvent{Kind: ToolCallStart, ToolCallID: toolID, ToolCallName: toolName})
					emitted = true
				}
			case "text":
				inText = true
			}

		case "content_block_delta":
			cbd := event.AsContentBlockDelta()
			switch cbd.Delta.Type {
			case "text_delta":
				textBuf.WriteString(cbd.Delta.Text)
				if sink != nil && cbd.Delta.Text != "" {
					sink(StreamEvent{Kind: TextDelta, Text: cbd.Delta.Text})
					emitted = true
				}
			case "thinking_delta":
				thinkingBuf.WriteString(cbd.Delta.Thinking)
				if sink != nil && cbd.Delta.Thinking != "" {
					sink(StreamEvent{Kind: ThinkingDelta, Text: cbd.Delta.Thinking})
					emitted = true
				}
			case "input_json_delta":
				toolArgsBuf.WriteString(cbd.Delta.PartialJSON)
				if sink != nil && cbd.Delta.PartialJSON != "" {
					sink(StreamEvent{Kind: ToolCallDelta, ToolCallID: toolID, ArgsDelta: cbd.Delta.PartialJSON})
					emitted = true
				}
			}

		case "content_block_stop":
			flush()

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				tokens.Output = int(md.Usage.OutputTokens)
			}

		case "message_stop":
			return &types.Message{
				Role:             types.RoleAssistant,
				AssistantContent: content,
				ModelID:          modelID,
				Tokens:           &tokens,
			}, emitted, nil

		case "error":
			return nil, emitted, fmt.Errorf("anthropic: stream error event")
		}
	}

	if err := stream.Err(); err != nil {
		return nil, emitted, err
	}

	return &types.Message{
		Role:             types.RoleAssistant,
		AssistantContent: content,
		ModelID:          modelID,
		Tokens:           &tokens,
	}, emitted, nil
}

func anthropicMessages(msgs []types.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, m := range msgs {
		switch m.Role {
		case types.RoleUser:
			var content []anthropic.ContentBlockParamUnion
			for _, uc := range m.UserContent {
				switch uc.Kind {
				case types.UserContentText:
					if uc.Text != "" {
						content = append(content, anthropic.NewTextBlock(uc.Text))
					}
				case types.UserContentCommandExecution:
					content = append(content, anthropic.NewTextBlock(formatCommandExecution(uc)))
				case types.UserContentAppCommand:
					content = append(content, anthropic.NewTextBlock(formatAppCommand(uc)))
				}
			}
			if len(content) == 0 {
				continue
			}
			result = append(result, anthropic.NewUserMessage(content...))

		case types.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			for _, ac := range m.AssistantContent {
				switch ac.Kind {
				case types.AssistantContentText:
					if ac.Text != "" {
						content = append(content, anthropic.NewTextBlock(ac.Text))
					}
				case types.AssistantContentToolCall:
					if ac.ToolCall == nil {
						continue
					}
					var input map[string]any
					if len(ac.ToolCall.ParametersRaw) > 0 {
						if err := json.Unmarshal(ac.ToolCall.ParametersRaw, &input); err != nil {
							return nil, fmt.Errorf("tool call %s: invalid parameters: %w", ac.ToolCall.Name, err)
						}
					}
					content = append(content, anthropic.NewToolUseBlock(ac.ToolCall.ID, input, ac.ToolCall.Name))
				case types.AssistantContentThought:
					// Extended-thinking blocks carry a provider signature
					// required to replay them; dropped from history rather
					// than resent unsigned.
				}
			}
			if len(content) == 0 {
				continue
			}
			result = append(result, anthropic.NewAssistantMessage(content...))

		case types.RoleTool:
			if m.Result == nil {
				continue
			}
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolUseID, m.Result.Payload, m.Result.IsError()),
			))
		}
	}

	return result, nil
}

func anthropicTools(tools []tool.CatalogEntry) ([]anthropic.ToolUnionParam, error) {
	var result []anthropic.ToolUnionParam
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", t.Name, err)
		}

		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid schema for %s: missing tool definition", t.Name)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		result = append(result, param)
	}
	return result, nil
}

func wrapAnthropicErr(err error, modelID string) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
			return apperror.Auth("anthropic authentication failed", err)
		}
		return apperror.LlmProvider(fmt.Sprintf("%d", apiErr.StatusCode), "anthropic request failed", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.LlmTimeout(err)
	}

	return apperror.LlmNetwork(err)
}

// anthropicModels returns the catalog of Claude models available through
// providerID, with pricing and capability metadata used for model selection
// and cost estimation.
func anthropicModels(providerID string) []types.Model {
	return []types.Model{
		{
			ID:                "claude-sonnet-4-20250514",
			Name:              "Claude Sonnet 4",
			ProviderID:        providerID,
			ContextLength:     200000,
			MaxOutputTokens:   64000,
			SupportsTools:     true,
			SupportsVision:    true,
			SupportsReasoning: true,
			InputPrice:        3.0,
			OutputPrice:       15.0,
			Options:           types.ModelOptions{PromptCaching: true, ExtendedOutput: true},
		},
		{
			ID:                "claude-opus-4-20250514",
			Name:              "Claude Opus 4",
			ProviderID:        providerID,
			ContextLength:     200000,
			MaxOutputTokens:   32000,
			SupportsTools:     true,
			SupportsVision:    true,
			SupportsReasoning: true,
			InputPrice:        15.0,
			OutputPrice:       75.0,
			Options:           types.ModelOptions{PromptCaching: true},
		},
		{
			ID:              "claude-3-5-sonnet-20241022",
			Name:            "Claude 3.5 Sonnet",
			ProviderID:      providerID,
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      3.0,
			OutputPrice:     15.0,
			Options:         types.ModelOptions{PromptCaching: true},
		},
		{
			ID:              "claude-3-5-haiku-20241022",
			Name:            "Claude 3.5 Haiku",
			ProviderID:      providerID,
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			SupportsTools:   true,
			SupportsVision:  false,
			InputPrice:      0.8,
			OutputPrice:     4.0,
		},
		{
			ID:                "claude-haiku-4-5-20251001",
			Name:              "Claude Haiku 4.5",
			ProviderID:        providerID,
			ContextLength:     200000,
			MaxOutputTokens:   64000,
			SupportsTools:     true,
			SupportsVision:    true,
			SupportsReasoning: true,
			InputPrice:        1.0,
			OutputPrice:       5.0,
			Options:           types.ModelOptions{PromptCaching: true, ExtendedOutput: true},
		},
	}
}
