package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/pkg/types"
)

// OpenAIClient talks to OpenAI (and OpenAI-compatible: Azure, local
// gateways) chat-completion endpoints through sashabaranov/go-openai.
type OpenAIClient struct {
	id     string
	client *openai.Client
	models []types.Model
}

// OpenAIConfig configures one OpenAI-backed Client.
type OpenAIConfig struct {
	// ID defaults to "openai"; set it to name a compatible gateway
	// (e.g. "ollama", "openrouter") that still speaks the chat-completions
	// wire format.
	ID      string
	APIKey  string
	BaseURL string
}

// NewOpenAIClient builds a Client from config.
func NewOpenAIClient(config OpenAIConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, apperror.Auth("openai: API key is required", nil)
	}

	id := config.ID
	if id == "" {
		id = "openai"
	}

	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		id:     id,
		client: openai.NewClientWithConfig(cfg),
		models: openAIModels(id),
	}, nil
}

func (c *OpenAIClient) ID() string            { return c.id }
func (c *OpenAIClient) Name() string          { return "OpenAI" }
func (c *OpenAIClient) Models() []types.Model { return c.models }

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest, sink StreamSink) (*types.Message, error) {
	if req.Model == nil {
		return nil, apperror.LlmProvider("invalid_request", "no model selected", nil)
	}

	messages := openAIMessages(req.Messages, req.System)
	tools := openAITools(req.Tools)

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model.ID,
		Messages: messages,
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxCompletionTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}
	if len(tools) > 0 {
		chatReq.Tools = tools
	}

	b := newBackoff(ctx)
	for {
		stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			if !isRetryable(err) {
				return nil, wrapOpenAIErr(err, req.Model.ID)
			}
			d := b.NextBackOff()
			if d == backoff.Stop {
				return nil, wrapOpenAIErr(err, req.Model.ID)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
				continue
			}
		}

		msg, emitted, streamErr := consumeOpenAIStream(stream, sink, req.Model.ID)
		if streamErr == nil {
			return msg, nil
		}

		wrapped := wrapOpenAIErr(streamErr, req.Model.ID)
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

type pendingToolCall struct {
	id   string
	name string
	args string
}

func consumeOpenAIStream(stream *openai.ChatCompletionStream, sink StreamSink, modelID string) (*types.Message, bool, error) {
	defer stream.Close()

	var content []types.AssistantContent
	var textBuf string
	toolCalls := make(map[int]*pendingToolCall)
	toolOrder := []int{}
	var tokens types.TokenUsage
	emitted := false

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, emitted, err
		}

		if resp.Usage != nil {
			tokens.Input = resp.Usage.PromptTokens
			tokens.Output = resp.Usage.CompletionTokens
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			textBuf += delta.Content
			if sink != nil {
				sink(StreamEvent{Kind: TextDelta, Text: delta.Content})
				emitted = true
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			pending, ok := toolCalls[idx]
			if !ok {
				pending = &pendingToolCall{}
				toolCalls[idx] = pending
				toolOrder = append(toolOrder, idx)
			}
			if tc.ID != "" {
				pending.id = tc.ID
			}
			if tc.Function.Name != "" {
				pending.name = tc.Function.Name
				if sink != nil {
					sink(StreamEvent{Kind: ToolCallStart, ToolCallID: pending.id, ToolCallName: pending.name})
					emitted = true
				}
			}
			if tc.Function.Arguments != "" {
				pending.args += tc.Function.Arguments
				if sink != nil {
					sink(StreamEvent{Kind: ToolCallDelta, ToolCallID: pending.id, ArgsDelta: tc.Function.Arguments})
					emitted = true
				}
			}
		}
	}

	if textBuf != "" {
		content = append(content, types.AssistantContent{Kind: types.AssistantContentText, Text: textBuf})
	}
	for _, idx := range toolOrder {
		tc := toolCalls[idx]
		if tc.id == "" && tc.name == "" {
			continue
		}
		content = append(content, types.AssistantContent{
			Kind: types.AssistantContentToolCall,
			ToolCall: &types.ToolCall{
				ID:            tc.id,
				Name:          tc.name,
				ParametersRaw: json.RawMessage(tc.args),
			},
		})
	}

	return &types.Message{
		Role:             types.RoleAssistant,
		AssistantContent: content,
		ModelID:          modelID,
		Tokens:           &tokens,
	}, emitted, nil
}

func openAIMessages(msgs []types.Message, system string) []openai.ChatCompletionMessage {
	var result []openai.ChatCompletionMessage
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, m := range msgs {
		switch m.Role {
		case types.RoleUser:
			var text string
			for _, uc := range m.UserContent {
				switch uc.Kind {
				case types.UserContentText:
					text += uc.Text
				case types.UserContentCommandExecution:
					text += formatCommandExecution(uc)
				case types.UserContentAppCommand:
					text += formatAppCommand(uc)
				}
			}
			if text == "" {
				continue
			}
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			})

		case types.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, ac := range m.AssistantContent {
				switch ac.Kind {
				case types.AssistantContentText:
					msg.Content += ac.Text
				case types.AssistantContentToolCall:
					if ac.ToolCall == nil {
						continue
					}
					msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
						ID:   ac.ToolCall.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      ac.ToolCall.Name,
							Arguments: string(ac.ToolCall.ParametersRaw),
						},
					})
				case types.AssistantContentThought:
					// OpenAI's chat-completions wire format has no slot for
					// reasoning content; dropped from replayed history.
				}
			}
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			result = append(result, msg)

		case types.RoleTool:
			if m.Result == nil {
				continue
			}
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Result.Payload,
				ToolCallID: m.ToolUseID,
			})
		}
	}

	return result
}

func openAITools(tools []tool.CatalogEntry) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schema,
			},
		})
	}
	return result
}

func wrapOpenAIErr(err error, modelID string) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403 {
			return apperror.Auth("openai authentication failed", err)
		}
		return apperror.LlmProvider(fmt.Sprintf("%d", apiErr.HTTPStatusCode), "openai request failed", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.LlmTimeout(err)
	}

	return apperror.LlmNetwork(err)
}

// openAIModels returns the catalog of OpenAI models available through
// providerID.
func openAIModels(providerID string) []types.Model {
	return []types.Model{
		{
			ID:                "gpt-5",
			Name:              "GPT-5",
			ProviderID:        providerID,
			ContextLength:     272000,
			MaxOutputTokens:   128000,
			SupportsTools:     true,
			SupportsVision:    true,
			SupportsReasoning: true,
			InputPrice:        1.25,
			OutputPrice:       10.0,
		},
		{
			ID:                "gpt-5-mini",
			Name:              "GPT-5 Mini",
			ProviderID:        providerID,
			ContextLength:     272000,
			MaxOutputTokens:   128000,
			SupportsTools:     true,
			SupportsVision:    true,
			SupportsReasoning: true,
			InputPrice:        0.25,
			OutputPrice:       2.0,
		},
		{
			ID:              "gpt-4o",
			Name:            "GPT-4o",
			ProviderID:      providerID,
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      2.5,
			OutputPrice:     10.0,
		},
		{
			ID:              "gpt-4o-mini",
			Name:            "GPT-4o Mini",
			ProviderID:      providerID,
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      0.15,
			OutputPrice:     0.6,
		},
		{
			ID:                "o1",
			Name:              "O1",
			ProviderID:        providerID,
			ContextLength:     200000,
			MaxOutputTokens:   100000,
			SupportsTools:     true,
			SupportsReasoning: true,
			InputPrice:        15.0,
			OutputPrice:       60.0,
		},
	}
}
