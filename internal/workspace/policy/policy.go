// Package policy implements the agent-level allow/deny/ask tool-gating
// policy: the static part of approval decisions, evaluated
// before the session's always-approve gate (internal/approval) is ever
// consulted.
package policy

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Action is the static disposition for a tool/pattern.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
	ActionAsk   Action = "ask"
)

// Category names the kind of mutating capability being gated.
type Category string

const (
	CategoryEdit        Category = "edit"
	CategoryBash        Category = "bash"
	CategoryWebFetch    Category = "webfetch"
	CategoryExternalDir Category = "external_directory"
	CategoryDoomLoop    Category = "doom_loop"
)

// Policy is one agent role's tool-gating configuration.
type Policy struct {
	Edit        Action
	WebFetch    Action
	ExternalDir Action
	DoomLoop    Action
	Bash        map[string]Action // shell-glob pattern -> action; "*" is evaluated after all other patterns
}

// Default returns the always-ask policy.
func Default() Policy {
	return Policy{
		Edit:        ActionAsk,
		WebFetch:    ActionAsk,
		ExternalDir: ActionAsk,
		DoomLoop:    ActionAsk,
		Bash:        map[string]Action{},
	}
}

// For returns the static action for a non-bash category.
func (p Policy) For(cat Category) Action {
	switch cat {
	case CategoryEdit:
		if p.Edit != "" {
			return p.Edit
		}
	case CategoryWebFetch:
		if p.WebFetch != "" {
			return p.WebFetch
		}
	case CategoryExternalDir:
		if p.ExternalDir != "" {
			return p.ExternalDir
		}
	case CategoryDoomLoop:
		if p.DoomLoop != "" {
			return p.DoomLoop
		}
	}
	return ActionAsk
}

// ForBash returns the action for a bash command. Patterns other than "*" are
// tried first (their relative order is not defined, as p.Bash is a map);
// "*" applies only when none of them matches, and ask when it is absent.
func (p Policy) ForBash(command string) Action {
	fallback := ActionAsk
	for pattern, action := range p.Bash {
		if pattern == "*" {
			fallback = action
			continue
		}
		if MatchWildcard(pattern, command) {
			return action
		}
	}
	return fallback
}

// MatchWildcard matches s against a shell-glob pattern: "*" matches
// everything, "prefix*"/"*suffix" use plain string matching, anything with
// "**" or interior "*" falls back to doublestar.
func MatchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if strings.Contains(pattern, "**") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}
	if strings.HasSuffix(pattern, "*") && !strings.HasPrefix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") && !strings.HasSuffix(pattern, "*") {
		return strings.HasSuffix(s, strings.TrimPrefix(pattern, "*"))
	}
	if strings.Contains(pattern, "*") {
		matched, _ := doublestar.Match(pattern, s)
		return matched
	}
	return pattern == s
}

// ToolEnabled reports whether toolID is enabled in a tool-visibility map
//, matching exact id first, then wildcard
// patterns, defaulting to enabled when the map is empty or toolID is unmatched.
func ToolEnabled(tools map[string]bool, toolID string) bool {
	if enabled, ok := tools[toolID]; ok {
		return enabled
	}
	for pattern, enabled := range tools {
		if MatchWildcard(pattern, toolID) {
			return enabled
		}
	}
	return true
}
