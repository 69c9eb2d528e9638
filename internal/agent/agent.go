// Package agent implements the agent role registry: the named
// roles (build/plan/general/explore, or user-defined) that a session's
// primary agent and its subagents run as, each carrying a model override,
// a tool-visibility map, and a workspace policy.
package agent

import (
	"github.com/steerrt/agentrt/internal/workspace/policy"
	"github.com/steerrt/agentrt/pkg/types"
)

// Mode is the role's eligibility: can it be selected as a session's primary
// agent, invoked only as a subagent, or both.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
	ModeAll      Mode = "all"
)

// Agent is one named role in the registry.
type Agent struct {
	Name        string
	Description string
	Mode        Mode
	BuiltIn     bool
	Policy      policy.Policy
	Tools       map[string]bool
	Options     map[string]any
	Temperature float64
	TopP        float64
	Model       *types.ModelRef
	Prompt      string
	Color       string
}

// ToolEnabled reports whether toolID is enabled for this role.
func (a *Agent) ToolEnabled(toolID string) bool {
	return policy.ToolEnabled(a.Tools, toolID)
}

// CheckBashPermission returns this role's static disposition for a bash
// command, prior to consulting the session's always-approve gate.
func (a *Agent) CheckBashPermission(command string) policy.Action {
	return a.Policy.ForBash(command)
}

// GetPermission returns this role's static disposition for a non-bash
// gated category.
func (a *Agent) GetPermission(cat policy.Category) policy.Action {
	return a.Policy.For(cat)
}

// IsPrimary reports whether the role may be selected as a session's primary agent.
func (a *Agent) IsPrimary() bool { return a.Mode == ModePrimary || a.Mode == ModeAll }

// IsSubagent reports whether the role may be spawned as a subagent.
func (a *Agent) IsSubagent() bool { return a.Mode == ModeSubagent || a.Mode == ModeAll }

// Clone deep-copies the role so registry overrides never mutate a shared built-in.
func (a *Agent) Clone() *Agent {
	clone := &Agent{
		Name:        a.Name,
		Description: a.Description,
		Mode:        a.Mode,
		BuiltIn:     a.BuiltIn,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		Prompt:      a.Prompt,
		Color:       a.Color,
		Policy: policy.Policy{
			Edit:        a.Policy.Edit,
			WebFetch:    a.Policy.WebFetch,
			ExternalDir: a.Policy.ExternalDir,
			DoomLoop:    a.Policy.DoomLoop,
		},
	}
	if a.Policy.Bash != nil {
		clone.Policy.Bash = make(map[string]policy.Action, len(a.Policy.Bash))
		for k, v := range a.Policy.Bash {
			clone.Policy.Bash[k] = v
		}
	}
	if a.Tools != nil {
		clone.Tools = make(map[string]bool, len(a.Tools))
		for k, v := range a.Tools {
			clone.Tools[k] = v
		}
	}
	if a.Options != nil {
		clone.Options = make(map[string]any, len(a.Options))
		for k, v := range a.Options {
			clone.Options[k] = v
		}
	}
	if a.Model != nil {
		ref := *a.Model
		clone.Model = &ref
	}
	return clone
}

// BuiltInAgents returns the four built-in roles.
func BuiltInAgents() map[string]*Agent {
	return map[string]*Agent{
		"build": {
			Name:        "build",
			Description: "Primary agent for executing tasks, writing code, and making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Policy: policy.Policy{
				Edit:        policy.ActionAllow,
				Bash:        map[string]policy.Action{"*": policy.ActionAllow},
				WebFetch:    policy.ActionAllow,
				ExternalDir: policy.ActionAsk,
				DoomLoop:    policy.ActionAsk,
			},
			Tools: map[string]bool{"*": true},
		},
		"plan": {
			Name:        "plan",
			Description: "Planning agent for analysis and exploration without making changes",
			Mode:        ModePrimary,
			BuiltIn:     true,
			Policy: policy.Policy{
				Edit: policy.ActionDeny,
				Bash: map[string]policy.Action{
					"grep*":      policy.ActionAllow,
					"find*":      policy.ActionAllow,
					"ls*":        policy.ActionAllow,
					"cat*":       policy.ActionAllow,
					"git status": policy.ActionAllow,
					"git diff*":  policy.ActionAllow,
					"git log*":   policy.ActionAllow,
					"*":          policy.ActionDeny,
				},
				WebFetch:    policy.ActionAllow,
				ExternalDir: policy.ActionDeny,
				DoomLoop:    policy.ActionDeny,
			},
			Tools: map[string]bool{
				"view": true, "glob": true, "grep": true, "ls": true,
				"ast_grep": true, "todo_read": true, "bash": true,
				"edit_file": false, "write_file": false, "multi_edit_file": false,
			},
		},
		"general": {
			Name:        "general",
			Description: "General-purpose subagent for searches and exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Policy: policy.Policy{
				Edit:        policy.ActionDeny,
				Bash:        map[string]policy.Action{"*": policy.ActionDeny},
				WebFetch:    policy.ActionAllow,
				ExternalDir: policy.ActionDeny,
				DoomLoop:    policy.ActionDeny,
			},
			Tools: map[string]bool{
				"view": true, "glob": true, "grep": true, "webfetch": true,
				"bash": false, "edit_file": false, "write_file": false,
			},
		},
		"explore": {
			Name:        "explore",
			Description: "Fast agent specialized for codebase exploration",
			Mode:        ModeSubagent,
			BuiltIn:     true,
			Policy: policy.Policy{
				Edit:        policy.ActionDeny,
				Bash:        map[string]policy.Action{"*": policy.ActionDeny},
				WebFetch:    policy.ActionDeny,
				ExternalDir: policy.ActionDeny,
				DoomLoop:    policy.ActionDeny,
			},
			Tools: map[string]bool{
				"view": true, "glob": true, "grep": true, "ls": true,
				"bash": false, "edit_file": false,
			},
		},
	}
}
