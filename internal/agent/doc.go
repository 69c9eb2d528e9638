// Package agent implements the agent role registry.
//
// A role bundles a model override, a tool-visibility map, and a workspace
// policy under a name a session selects as its primary agent or spawns as a
// subagent.
//
// # Built-in roles
//
//   - build: primary role for executing tasks, writing code, making changes.
//     Full tool access, permissive policy.
//   - plan: primary role for analysis and exploration without mutation.
//     Restricted to read-only operations.
//   - general: subagent for general-purpose search and exploration.
//   - explore: fast subagent specialized for codebase exploration.
//
// # Modes
//
//   - ModePrimary: selectable as a session's primary agent.
//   - ModeSubagent: invokable only as a subagent.
//   - ModeAll: both.
//
// # Tool visibility
//
//	a.Tools = map[string]bool{
//	    "*":        true,
//	    "bash":     false,
//	    "mcp_*":    true,
//	}
//
// [Agent.ToolEnabled] checks exact name then wildcard patterns, including
// doublestar (**) for nested matches.
//
// # Workspace policy
//
// [Agent.Policy] gates edit/bash/webfetch/external-dir/doom-loop categories
// with allow/deny/ask, evaluated before the session's always-approve gate
// (internal/approval) is consulted.
//
// # Registry
//
//	r := agent.NewRegistry()  // seeded with built-ins
//	r.Register(custom)
//	a, err := r.Get("build")
//	primaries := r.ListPrimary()
//	subagents := r.ListSubagents()
//
// Custom roles load from the session-config file via [Registry.LoadFromConfig].
package agent
