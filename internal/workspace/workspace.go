// Package workspace implements the Workspace abstraction: the
// filesystem-shaped surface every tool executes against, whether the
// session's files live in a local directory, behind a remote gRPC proxy, or
// inside a jj-managed sub-workspace.
package workspace

import (
	"context"

	"github.com/steerrt/agentrt/pkg/types"
)

// Kind mirrors types.WorkspaceKind for the metadata advertised by a Workspace.
type Kind = types.WorkspaceKind

// OpContext carries per-operation cancellation and naming, threaded through
// every Workspace call so a long-running grep/glob can be cancelled without
// tearing down the workspace itself.
type OpContext struct {
	Ctx context.Context
	Op  string // op name, used for logging/metrics only
}

// Metadata identifies a workspace instance on the wire.
type Metadata struct {
	ID       string
	Type     Kind
	Location string
}

// EnvironmentInfo is the cached, possibly-stale description of a workspace's
// runtime environment (OS, shell, available tools) returned by Environment.
type EnvironmentInfo struct {
	OS          string
	Shell       string
	WorkingDir  string
	IsGitRepo   bool
	Platform    string
}

// FileEdit is one sequential find-and-replace step of an apply_edits call
//. An empty OldString on the first edit means
// "create or overwrite the file with NewString".
type FileEdit struct {
	OldString string
	NewString string
}

// EditResult reports what apply_edits did, including a unified diff for the
// session to surface as a typed tool result.
type EditResult struct {
	Path    string
	Before  string
	After   string
	Created bool
}

// GrepMatch is one line match from Grep.
type GrepMatch struct {
	Path    string
	Line    int
	Content string
}

// Workspace is the capability surface every tool executes against.
type Workspace interface {
	Metadata() Metadata
	WorkingDirectory() string

	ListFiles(oc OpContext, pattern string) ([]string, error)
	ReadFile(oc OpContext, path string, offset, limit int) (string, error)
	ListDirectory(oc OpContext, path string) ([]string, error)
	Glob(oc OpContext, pattern string) ([]string, error)
	Grep(oc OpContext, pattern, pathFilter string) ([]GrepMatch, error)
	AstGrep(oc OpContext, pattern, lang, pathFilter string) ([]GrepMatch, error)
	ApplyEdits(oc OpContext, path string, edits []FileEdit) (*EditResult, error)
	WriteFile(oc OpContext, path, content string) error
	Environment(oc OpContext) (EnvironmentInfo, error)

	InvalidateEnvironmentCache()
}
