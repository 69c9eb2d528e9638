package headless

import (
	"time"

	"github.com/steerrt/agentrt/pkg/types"
)

// OutputFormat selects how a run's progress and result are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputJSONL OutputFormat = "jsonl"
)

// ExitCode is the process exit code a headless run reports.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitError            ExitCode = 1
	ExitTimeout          ExitCode = 2
	ExitPermissionDenied ExitCode = 3
	ExitProviderError    ExitCode = 4
	ExitInvalidInput     ExitCode = 5
	ExitSessionNotFound  ExitCode = 6
)

// Config holds configuration for one headless run.
type Config struct {
	Prompt       string
	WorkDir      string
	AutoApprove  bool
	OutputFormat OutputFormat
	Timeout      time.Duration
	MaxSteps     int
	ReadStdin    bool
	NoSave       bool
	SessionID    string
	ContinueLast bool
	Files        []string
	SystemPrompt string
	Quiet        bool
	Verbose      bool
	Model        string
	Agent        string
	Title        string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputFormat: OutputText,
		Timeout:      30 * time.Minute,
		MaxSteps:     50,
	}
}

// ToolCall summarizes one tool invocation for the final Result.
type ToolCall struct {
	Tool       string `json:"tool"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// Result holds the final outcome of a headless run.
type Result struct {
	SessionID    string           `json:"session_id"`
	Status       string           `json:"status"` // "success", "error", "timeout", "permission_denied", "cancelled"
	Model        string           `json:"model"`
	DurationMS   int64            `json:"duration_ms"`
	Tokens       *types.TokenUsage `json:"tokens,omitempty"`
	Steps        int              `json:"steps"`
	ToolCalls    []ToolCall       `json:"tool_calls,omitempty"`
	FinalMessage string           `json:"final_message,omitempty"`
	Error        string           `json:"error,omitempty"`
	ExitCode     ExitCode         `json:"exit_code"`
}

// Event is one JSONL record emitted in OutputJSONL mode, wrapping a
// types.SessionEvent's kind and payload with a wall-clock timestamp.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data"`
}
