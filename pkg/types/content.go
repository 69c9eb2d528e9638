package types

import "encoding/json"

// Role distinguishes the three message kinds in the conversation DAG.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a tagged record: User, Assistant, or Tool. Exactly one of
// UserContent, AssistantContent, ToolResult is populated, selected by Role.
type Message struct {
	ID             string      `json:"id"`
	SessionID      string      `json:"sessionID"`
	Role           Role        `json:"role"`
	ParentMessageID *string    `json:"parentMessageID,omitempty"`
	Timestamp      int64       `json:"timestamp"`

	// User-role fields
	UserContent []UserContent `json:"userContent,omitempty"`

	// Assistant-role fields
	AssistantContent []AssistantContent `json:"assistantContent,omitempty"`
	ProviderID        string            `json:"providerID,omitempty"`
	ModelID           string            `json:"modelID,omitempty"`
	Tokens            *TokenUsage       `json:"tokens,omitempty"`

	// Tool-role fields
	ToolUseID string      `json:"toolUseID,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
}

// TokenUsage tracks per-message provider token accounting; the session's
// compaction trigger sums these across the conversation.
type TokenUsage struct {
	Input     int `json:"input"`
	Output    int `json:"output"`
	Reasoning int `json:"reasoning,omitempty"`
}

// UserContentKind discriminates UserContent variants.
type UserContentKind string

const (
	UserContentText             UserContentKind = "text"
	UserContentCommandExecution UserContentKind = "command_execution"
	UserContentAppCommand       UserContentKind = "app_command"
)

// UserContent is a tagged union: Text | CommandExecution | AppCommand.
type UserContent struct {
	Kind UserContentKind `json:"kind"`

	Text string `json:"text,omitempty"`

	Command  string `json:"command,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exitCode,omitempty"`

	AppCommand string          `json:"appCommand,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
}

// NewUserText builds a plain text user content part.
func NewUserText(text string) UserContent {
	return UserContent{Kind: UserContentText, Text: text}
}

// AssistantContentKind discriminates AssistantContent variants.
type AssistantContentKind string

const (
	AssistantContentText     AssistantContentKind = "text"
	AssistantContentThought  AssistantContentKind = "thought"
	AssistantContentToolCall AssistantContentKind = "tool_call"
)

// AssistantContent is a tagged union: Text | Thought | ToolCall.
type AssistantContent struct {
	Kind AssistantContentKind `json:"kind"`

	Text string `json:"text,omitempty"`

	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

// ToolCall names a pending tool invocation emitted by the model.
type ToolCall struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ParametersRaw json.RawMessage `json:"parameters"`
}

// ToolResultKind discriminates ToolResult variants.
type ToolResultKind string

const (
	ToolResultSuccess  ToolResultKind = "success"
	ToolResultError    ToolResultKind = "error"
	ToolResultExternal ToolResultKind = "external"
	ToolResultTyped    ToolResultKind = "typed"
)

// ToolResult is a tagged union: Success(payload) | Error(msg) |
// External(tool_name, payload) | typed-variant. Typed results
// carry built-in-tool-specific metadata in Typed (e.g. a diff, a file
// listing) alongside the plain-text Payload rendered back to the model.
type ToolResult struct {
	Kind     ToolResultKind `json:"kind"`
	Payload  string         `json:"payload,omitempty"`
	ToolName string         `json:"toolName,omitempty"`
	Typed    map[string]any `json:"typed,omitempty"`
}

func Success(payload string) ToolResult { return ToolResult{Kind: ToolResultSuccess, Payload: payload} }
func Error(msg string) ToolResult        { return ToolResult{Kind: ToolResultError, Payload: msg} }
func External(toolName, payload string) ToolResult {
	return ToolResult{Kind: ToolResultExternal, ToolName: toolName, Payload: payload}
}

// IsError reports whether the result represents a failed tool invocation.
func (r ToolResult) IsError() bool { return r.Kind == ToolResultError }
