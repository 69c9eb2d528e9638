// Package types provides the core data types shared across the session
// runtime: the message/content model, session state, the tool catalog,
// credentials, and the event envelope.
package types

// SessionHeader is the summary record returned by ListSessions —
// everything about a session except its message log.
type SessionHeader struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt int64             `json:"createdAt"`
	UpdatedAt int64             `json:"updatedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ApprovalPolicy selects how the executor's tool_approval_callback resolves
// approval-requiring tools for a session.
type ApprovalPolicy string

const (
	ApprovalAlwaysAsk ApprovalPolicy = "always_ask"
	ApprovalTagged    ApprovalPolicy = "tagged"
)

// ToolVisibility narrows the tool catalog exposed to a session.
type ToolVisibilityMode string

const (
	VisibilityAll       ToolVisibilityMode = "all"
	VisibilityReadOnly  ToolVisibilityMode = "read_only"
	VisibilityWhitelist ToolVisibilityMode = "whitelist"
	VisibilityBlacklist ToolVisibilityMode = "blacklist"
)

type ToolVisibility struct {
	Mode  ToolVisibilityMode `json:"mode"`
	Tools []string           `json:"tools,omitempty"`
}

// WorkspaceKind selects the Workspace implementation.
type WorkspaceKind string

const (
	WorkspaceLocal     WorkspaceKind = "local"
	WorkspaceRemote    WorkspaceKind = "remote"
	WorkspaceContainer WorkspaceKind = "container"
)

// WorkspaceConfig selects and parameterizes a session's Workspace.
type WorkspaceConfig struct {
	Kind WorkspaceKind `json:"kind"`

	// Local
	Path string `json:"path,omitempty"`

	// Remote
	Address string `json:"address,omitempty"`
	Auth    string `json:"auth,omitempty"`

	// Container
	Image   string `json:"image,omitempty"`
	Runtime string `json:"runtime,omitempty"`

	// UseJJ roots the local workspace inside a jj-managed sub-workspace
	// instead of the bare directory.
	UseJJ bool `json:"useJJ,omitempty"`
}

// MCPBackendConfig names one external MCP tool server in a session's
// ToolConfig. Session boot does not read it; no backend listed here is
// connected or registered automatically.
type MCPBackendConfig struct {
	ServerName string            `json:"serverName"`
	Transport  string            `json:"transport"` // "stdio" | "http"
	Command    []string          `json:"command,omitempty"`
	URL        string            `json:"url,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	ToolFilter []string          `json:"toolFilter,omitempty"`
}

// ToolConfig configures the tool catalog a session exposes.
type ToolConfig struct {
	Backends       []MCPBackendConfig `json:"backends,omitempty"`
	Visibility     ToolVisibility     `json:"visibility"`
	ApprovalPolicy ApprovalPolicy     `json:"approvalPolicy"`
}

// ModelRef identifies a model by provider.
type ModelRef struct {
	ProviderID string `json:"providerID"`
	ModelID    string `json:"modelID"`
}

// SessionConfig is a session's immutable-at-creation configuration, supplied
// in a CreateSessionRequest or a session-config file.
type SessionConfig struct {
	Workspace    WorkspaceConfig   `json:"workspace"`
	DefaultModel ModelRef          `json:"defaultModel"`
	ToolConfig   ToolConfig        `json:"toolConfig"`
	PrimaryAgent string            `json:"primaryAgent"`
	SystemPrompt string            `json:"systemPrompt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	SerialTurns  bool              `json:"serialTurns"` // if false, concurrent SendMessage is rejected with Busy

	// MaxContextTokens caps the conversation's accumulated token usage
	// before a turn triggers auto-compaction. Zero means use the session
	// runtime's default.
	MaxContextTokens int `json:"maxContextTokens,omitempty"`
}

// TodoStatus is one todo item's lifecycle state, tracked by the todo_read /
// todo_write tools.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoInfo is one entry of a session's todo list, persisted under storage
// key ["todo", sessionID].
type TodoInfo struct {
	ID       string     `json:"id"`
	Content  string     `json:"content"`
	Status   TodoStatus `json:"status"`
	Priority string     `json:"priority,omitempty"`
}
