package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/internal/workspace/policy"
)

const (
	DefaultBashTimeout = 120 * time.Second
	MaxBashTimeout     = 10 * time.Minute
	MaxOutputLength    = 30000
	SigkillTimeout     = 200 * time.Millisecond
)

const bashDescription = `Executes a bash command in the workspace.

Usage:
- command is required
- Optional timeout in milliseconds (max 600000)
- description: a brief summary of what the command does
- Output is captured from stdout and stderr combined`

var bashSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "description": "The command to execute"},
		"timeout": {"type": "integer", "description": "Optional timeout in milliseconds (max 600000)"},
		"description": {"type": "string", "description": "Brief description of what this command does"}
	},
	"required": ["command", "description"]
}`)

type bashInput struct {
	Command     string `json:"command"`
	Timeout     int    `json:"timeout,omitempty"`
	Description string `json:"description"`
}

// BashTool runs shell commands in the workspace. External-directory access
// outside the workspace root is a check the tool performs itself using the
// agent's workspace policy (carried in toolCtx.Extra["policy"]): it refuses
// the command only when that policy's ExternalDir is deny,
// distinct from the coarse approval gate and its fine-grained per-path validation.
type BashTool struct {
	ws    workspace.Workspace
	shell string
}

// NewBashTool creates the bash tool bound to ws.
func NewBashTool(ws workspace.Workspace) *BashTool {
	return &BashTool{ws: ws, shell: detectShell()}
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" && s != "/bin/fish" && s != "/bin/nu" {
		return s
	}
	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	return "/bin/sh"
}

func (t *BashTool) ID() string                  { return "bash" }
func (t *BashTool) Description() string         { return bashDescription }
func (t *BashTool) Parameters() json.RawMessage { return bashSchema }
func (t *BashTool) RequiresApproval() bool      { return true }

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	if err := ValidateParams("bash", bashSchema, input); err != nil {
		return nil, err
	}
	var params bashInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	workDir := t.ws.WorkingDirectory()
	if toolCtx != nil && toolCtx.WorkDir() != "" {
		workDir = toolCtx.WorkDir()
	}

	if err := t.checkExternalDirAccess(ctx, params.Command, workDir, toolCtx); err != nil {
		return nil, err
	}

	timeout := DefaultBashTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cmdCtx, t.shell, "/c", params.Command)
	} else {
		cmd = exec.CommandContext(cmdCtx, t.shell, "-c", params.Command)
	}
	cmd.Dir = workDir
	cmd.Env = os.Environ()
	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	if toolCtx != nil {
		toolCtx.SetMetadata(params.Description, map[string]any{"description": params.Description})
	}

	output, err := cmd.CombinedOutput()
	timedOut := cmdCtx.Err() == context.DeadlineExceeded

	result := string(output)
	if len(result) > MaxOutputLength {
		result = result[:MaxOutputLength] + "\n\n(output truncated)"
	}
	if timedOut {
		result += fmt.Sprintf("\n\n(command timed out after %v)", timeout)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && !timedOut {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			result += fmt.Sprintf("\n\nerror: %v", err)
		}
	}

	title := params.Description
	if title == "" {
		title = "Run command"
	}

	return &Result{
		Title:  title,
		Output: result,
		Metadata: map[string]any{
			"exit":        exitCode,
			"description": params.Description,
		},
	}, nil
}

// checkExternalDirAccess parses command for path-bearing invocations of
// dangerous builtins (cd, rm, cp, mv, ...) and returns a permission error for
// a reference outside workDir when the policy's ExternalDir is deny; under
// allow or ask it returns nil.
func (t *BashTool) checkExternalDirAccess(ctx context.Context, command, workDir string, toolCtx *Context) error {
	pol := policy.Default()
	if toolCtx != nil && toolCtx.Extra != nil {
		if p, ok := toolCtx.Extra["policy"].(policy.Policy); ok {
			pol = p
		}
	}

	commands, err := workspace.ParseBashCommand(command)
	if err != nil {
		return nil // unparseable commands fall through to the coarse approval gate
	}

	for _, cmd := range commands {
		if !workspace.IsDangerousCommand(cmd.Name) {
			continue
		}
		for _, p := range workspace.ExtractPaths(cmd) {
			resolved, err := workspace.ResolvePath(ctx, p, workDir)
			if err != nil {
				continue
			}
			if workspace.IsWithinDir(resolved, workDir) {
				continue
			}
			if pol.ExternalDir == policy.ActionDeny {
				return apperror.WorkspacePermission(resolved)
			}
		}
	}
	return nil
}
