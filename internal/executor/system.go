package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/pkg/types"
)

// SystemPrompt assembles the system prompt handed to the model each turn:
// a provider header, the agent role's own prompt, model-specific guidance,
// live environment context, and any project rule files found on disk.
type SystemPrompt struct {
	Agent      *agent.Agent
	Model      *types.Model
	ProviderID string
	WorkDir    string
}

// Build concatenates every section present, in a fixed order, each
// separated by a blank line.
func (s SystemPrompt) Build() string {
	var parts []string

	if header := s.providerHeader(); header != "" {
		parts = append(parts, header)
	}
	if s.Agent != nil && s.Agent.Prompt != "" {
		parts = append(parts, s.Agent.Prompt)
	}
	if modelGuidance := s.modelGuidance(); modelGuidance != "" {
		parts = append(parts, modelGuidance)
	}
	parts = append(parts, s.environmentContext())
	if rules := s.projectRules(); rules != "" {
		parts = append(parts, rules)
	}

	return strings.Join(parts, "\n\n")
}

func (s SystemPrompt) providerHeader() string {
	switch s.ProviderID {
	case "anthropic":
		return "You are a capable coding and research assistant with tool access to read, write, and execute commands in the user's workspace. Use tools decisively and responsibly."
	case "openai":
		return "You are a helpful assistant with tool access for reading, writing, and executing commands in the user's workspace."
	default:
		return ""
	}
}

func (s SystemPrompt) modelGuidance() string {
	if s.Model == nil {
		return ""
	}
	switch {
	case strings.Contains(s.Model.ID, "claude"):
		return "Be decisive with tools; don't ask for confirmation unless a destructive action genuinely warrants it. Read files before editing them, and keep edits minimal and focused."
	case strings.Contains(s.Model.ID, "gpt"):
		return "Read files before changing them. Make precise, targeted edits that follow existing conventions."
	default:
		return ""
	}
}

func (s SystemPrompt) environmentContext() string {
	var env strings.Builder
	env.WriteString("# Environment\n\n")
	workDir := s.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	fmt.Fprintf(&env, "Working directory: %s\n", workDir)
	fmt.Fprintf(&env, "Date: %s\n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(&env, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if branch := gitBranch(workDir); branch != "" {
		fmt.Fprintf(&env, "Git branch: %s\n", branch)
	}
	return env.String()
}

// projectRules surfaces the first AGENTS.md/CLAUDE.md found at the workspace
// root, the repo-local equivalent of a custom system-prompt override.
func (s SystemPrompt) projectRules() string {
	workDir := s.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	for _, name := range []string{"AGENTS.md", "CLAUDE.md"} {
		if content, err := os.ReadFile(filepath.Join(workDir, name)); err == nil && len(content) > 0 {
			return fmt.Sprintf("# Project rules\n\n%s", string(content))
		}
	}
	return ""
}

func gitBranch(dir string) string {
	if dir == "" {
		return ""
	}
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
