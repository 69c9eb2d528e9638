package headless

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/steerrt/agentrt/pkg/types"
)

// Printer renders a session's event stream in one of three formats as a
// headless run progresses, and accumulates the final Result.
type Printer struct {
	mu      sync.Mutex
	writer  io.Writer
	format  OutputFormat
	quiet   bool
	verbose bool

	sessionID string
	startTime time.Time
	result    *Result
	toolCalls []ToolCall

	toolNames map[string]string // toolCallID -> tool name, for completion/failure lines
}

// NewPrinter creates a new event printer.
func NewPrinter(writer io.Writer, format OutputFormat, quiet, verbose bool) *Printer {
	return &Printer{
		writer:    writer,
		format:    format,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
		result:    &Result{Status: "running", ExitCode: ExitSuccess},
		toolNames: make(map[string]string),
	}
}

// SetSessionID records the session ID for the printer's result.
func (p *Printer) SetSessionID(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = sessionID
	p.result.SessionID = sessionID
}

// GetResult returns the current, finalized result.
func (p *Printer) GetResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
	p.result.ToolCalls = p.toolCalls
	return p.result
}

// SetResult updates the result with a terminal status.
func (p *Printer) SetResult(status string, exitCode ExitCode, finalMessage string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Status = status
	p.result.ExitCode = exitCode
	if finalMessage != "" {
		p.result.FinalMessage = finalMessage
	}
	if err != nil {
		p.result.Error = err.Error()
	}
	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
}

// SetModel records the model used in the result.
func (p *Printer) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Model = model
}

// PrintFinalResult prints the final JSON result (OutputJSON format only).
func (p *Printer) PrintFinalResult() {
	if p.format != OutputJSON {
		return
	}
	result := p.GetResult()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// HandleEvent renders one session event according to the printer's format
// and tracks it toward the final Result.
func (p *Printer) HandleEvent(ev types.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trackEvent(ev)

	switch p.format {
	case OutputText:
		p.handleTextEvent(ev)
	case OutputJSONL:
		p.handleJSONLEvent(ev)
	case OutputJSON:
		// JSON format only emits the final result, via PrintFinalResult.
	}
}

func (p *Printer) handleTextEvent(ev types.SessionEvent) {
	switch ev.Kind {
	case types.EventMessageDelta:
		if payload, ok := ev.Payload.(types.MessageDeltaPayload); ok && payload.Delta != "" {
			fmt.Fprint(p.writer, payload.Delta)
		}
	case types.EventThinkingDelta:
		if p.quiet {
			return
		}
		if payload, ok := ev.Payload.(types.ThinkingDeltaPayload); ok && p.verbose && payload.Delta != "" {
			fmt.Fprint(p.writer, payload.Delta)
		}
	case types.EventToolStarted:
		if p.quiet {
			return
		}
		if payload, ok := ev.Payload.(types.ToolStartedPayload); ok {
			fmt.Fprintf(p.writer, "\n[tool:%s] %s\n", payload.Name, formatToolInfo(payload.Name, payload.Parameters))
		}
	case types.EventToolCompleted:
		if p.quiet || !p.verbose {
			return
		}
		if payload, ok := ev.Payload.(types.ToolCompletedPayload); ok {
			fmt.Fprintf(p.writer, "[tool:%s] done\n", payload.Name)
		}
	case types.EventToolFailed:
		if p.quiet {
			return
		}
		if payload, ok := ev.Payload.(types.ToolFailedPayload); ok {
			fmt.Fprintf(p.writer, "[tool:%s] error: %s\n", payload.Name, payload.Error)
		}
	case types.EventApprovalRequested:
		if p.quiet {
			return
		}
		if payload, ok := ev.Payload.(types.ApprovalRequestedPayload); ok && p.verbose {
			fmt.Fprintf(p.writer, "\n[approval] %s requested\n", payload.ToolCall.Name)
		}
	case types.EventOperationCompleted:
		if p.quiet {
			return
		}
		if payload, ok := ev.Payload.(types.OperationCompletedPayload); ok {
			duration := time.Since(p.startTime)
			fmt.Fprintf(p.writer, "\n[done] %s in %s", payload.Outcome, formatDuration(duration))
			if p.result.Tokens != nil {
				fmt.Fprintf(p.writer, " (input: %d tokens, output: %d tokens)", p.result.Tokens.Input, p.result.Tokens.Output)
			}
			fmt.Fprintln(p.writer)
		}
	case types.EventError:
		if payload, ok := ev.Payload.(types.ErrorPayload); ok {
			fmt.Fprintf(p.writer, "[error] %s\n", payload.Message)
		}
	}
}

func (p *Printer) handleJSONLEvent(ev types.SessionEvent) {
	if !p.verbose && !isImportantEvent(ev.Kind) {
		return
	}
	evt := &Event{Type: string(ev.Kind), Timestamp: time.Now(), Data: ev.Payload}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// trackEvent updates the in-progress Result fields that get rendered only
// at the end, regardless of output format.
func (p *Printer) trackEvent(ev types.SessionEvent) {
	switch ev.Kind {
	case types.EventMessageAdded:
		if payload, ok := ev.Payload.(types.MessageAddedPayload); ok && payload.Message != nil {
			if payload.Message.Role == types.RoleAssistant {
				if payload.Message.Tokens != nil {
					p.result.Tokens = payload.Message.Tokens
				}
				if text := assistantText(payload.Message); text != "" {
					p.result.FinalMessage = text
				}
			}
		}
	case types.EventToolStarted:
		if payload, ok := ev.Payload.(types.ToolStartedPayload); ok {
			p.toolNames[payload.ToolCallID] = payload.Name
		}
	case types.EventToolCompleted:
		if payload, ok := ev.Payload.(types.ToolCompletedPayload); ok {
			p.result.Steps++
			p.toolCalls = append(p.toolCalls, ToolCall{Tool: payload.Name, Output: truncateOutput(payload.Result.Payload, 500)})
		}
	case types.EventToolFailed:
		if payload, ok := ev.Payload.(types.ToolFailedPayload); ok {
			p.result.Steps++
			p.toolCalls = append(p.toolCalls, ToolCall{Tool: payload.Name, Error: payload.Error})
		}
	}
}

func assistantText(msg *types.Message) string {
	var sb strings.Builder
	for _, c := range msg.AssistantContent {
		if c.Kind == types.AssistantContentText {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatToolInfo(name string, params map[string]any) string {
	switch name {
	case "view":
		if path, ok := params["file_path"].(string); ok {
			return fmt.Sprintf("reading %s", path)
		}
	case "write_file":
		if path, ok := params["file_path"].(string); ok {
			return fmt.Sprintf("writing %s", path)
		}
	case "edit_file", "multi_edit_file":
		if path, ok := params["file_path"].(string); ok {
			return fmt.Sprintf("editing %s", path)
		}
	case "bash":
		if cmd, ok := params["command"].(string); ok {
			cmd = strings.Split(cmd, "\n")[0]
			if len(cmd) > 60 {
				cmd = cmd[:60] + "..."
			}
			return fmt.Sprintf("$ %s", cmd)
		}
	case "glob":
		if pattern, ok := params["pattern"].(string); ok {
			return fmt.Sprintf("searching %s", pattern)
		}
	case "grep":
		if pattern, ok := params["pattern"].(string); ok {
			return fmt.Sprintf("grepping %s", pattern)
		}
	case "webfetch":
		if url, ok := params["url"].(string); ok {
			return fmt.Sprintf("fetching %s", url)
		}
	}
	return "running"
}

func isImportantEvent(kind types.EventPayloadKind) bool {
	switch kind {
	case types.EventMessageAdded,
		types.EventToolStarted,
		types.EventToolCompleted,
		types.EventToolFailed,
		types.EventApprovalRequested,
		types.EventOperationCompleted,
		types.EventError:
		return true
	default:
		return false
	}
}
