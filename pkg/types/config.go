package types

// GlobalConfig is the on-disk, JSONC-parsed configuration file:
// provider credentials/catalog defaults, agent role overrides, and the
// workspace policy defaults a new session inherits unless its
// CreateSessionRequest overrides them. Loaded global -> project -> env,
// narrowest wins (internal/config).
type GlobalConfig struct {
	Schema string `json:"$schema,omitempty"`

	// Default model used when a session's SessionConfig.DefaultModel is zero.
	Model      string `json:"model,omitempty"`
	SmallModel string `json:"smallModel,omitempty"`

	// Provider catalog/credential defaults, keyed by provider id ("anthropic","openai").
	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	// Agent role overrides, keyed by role name.
	Agent map[string]AgentRoleConfig `json:"agent,omitempty"`

	// Custom slash commands (internal/command).
	Command map[string]CommandConfig `json:"command,omitempty"`

	// Default workspace policy (internal/workspace/policy), inherited by a
	// session unless overridden in its SessionConfig.ToolConfig.
	Policy *WorkspacePolicyConfig `json:"policy,omitempty"`

	// MCP backends available to attach to a session by name.
	MCP map[string]MCPConfig `json:"mcp,omitempty"`

	// File watcher ignore patterns (internal/vcs, internal/workspace).
	Watcher *WatcherConfig `json:"watcher,omitempty"`
}

// ProviderConfig holds credential/catalog configuration for one LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	Options *ProviderOptions `json:"options,omitempty"`

	Whitelist []string `json:"whitelist,omitempty"`
	Blacklist []string `json:"blacklist,omitempty"`

	Disable bool `json:"disable,omitempty"`
}

// ProviderOptions holds nested per-provider tuning.
type ProviderOptions struct {
	APIKey        string `json:"apiKey,omitempty"`
	BaseURL       string `json:"baseURL,omitempty"`
	EnterpriseURL string `json:"enterpriseUrl,omitempty"`
	Timeout       *int   `json:"timeout,omitempty"` // ms, nil = default, 0 = disabled
}

// AgentRoleConfig overrides one entry of the built-in agent role registry.
type AgentRoleConfig struct {
	Model string `json:"model,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`

	Prompt string `json:"prompt,omitempty"`

	// Tools this role may use; nil means "inherit the session's ToolConfig".
	Tools map[string]bool `json:"tools,omitempty"`

	Policy *WorkspacePolicyConfig `json:"policy,omitempty"`

	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"` // "subagent"|"primary"|"all"

	Disable bool `json:"disable,omitempty"`
}

// WorkspacePolicyConfig is the on-disk form of an agent's allow/deny/ask
// tool-gating policy.
type WorkspacePolicyConfig struct {
	Edit        string      `json:"edit,omitempty"`     // "allow"|"deny"|"ask"
	Bash        interface{} `json:"bash,omitempty"`     // "allow"|"deny"|"ask" or map[pattern]decision
	WebFetch    string      `json:"webfetch,omitempty"` // "allow"|"deny"|"ask"
	ExternalDir string      `json:"externalDirectory,omitempty"`
	DoomLoop    string      `json:"doomLoop,omitempty"`
}

// CommandConfig holds a custom slash command template.
type CommandConfig struct {
	Template    string `json:"template"`
	Description string `json:"description,omitempty"`
	Agent       string `json:"agent,omitempty"`
	Model       string `json:"model,omitempty"`
	Subtask     bool   `json:"subtask,omitempty"`
}

// MCPConfig is a named, reusable MCP backend definition a SessionConfig's
// MCPBackendConfig can reference by server name.
type MCPConfig struct {
	Type        string            `json:"type,omitempty"` // "local"|"remote"
	Command     []string          `json:"command,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Timeout     int               `json:"timeout,omitempty"`
}

// WatcherConfig holds file watcher ignore globs.
type WatcherConfig struct {
	Ignore []string `json:"ignore,omitempty"`
}

// Model represents an LLM model available from a provider (internal/llm catalog).
type Model struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	ProviderID        string       `json:"providerID"`
	ContextLength     int          `json:"contextLength"`
	MaxOutputTokens   int          `json:"maxOutputTokens,omitempty"`
	SupportsTools     bool         `json:"supportsTools"`
	SupportsVision    bool         `json:"supportsVision"`
	SupportsReasoning bool         `json:"supportsReasoning,omitempty"`
	InputPrice        float64      `json:"inputPrice,omitempty"`
	OutputPrice       float64      `json:"outputPrice,omitempty"`
	Options           ModelOptions `json:"options,omitempty"`
}

// ModelOptions contains model-specific generation defaults.
type ModelOptions struct {
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           *float64 `json:"topP,omitempty"`
	PromptCaching  bool     `json:"promptCaching,omitempty"`
	ExtendedOutput bool     `json:"extendedOutput,omitempty"`
}
