package workspace

import (
	"context"
	"os/exec"
	"strings"

	"github.com/steerrt/agentrt/pkg/types"
)

// JJWorkspace roots a LocalWorkspace inside a jj-managed sub-workspace: all
// file operations are delegated to the embedded
// LocalWorkspace, and this type layers jj-specific metadata/snapshot calls
// on top. No Go jj client library exists in the ecosystem, so the jj CLI is
// invoked directly via os/exec — justified in the design ledger as a
// standard-library-only boundary (there is nothing to wire a dependency to).
type JJWorkspace struct {
	*LocalWorkspace
}

// NewJJWorkspace returns a jj-backed workspace rooted at root.
func NewJJWorkspace(id, root string) *JJWorkspace {
	return &JJWorkspace{LocalWorkspace: NewLocalWorkspace(id, root, true)}
}

func (w *JJWorkspace) Metadata() Metadata {
	m := w.LocalWorkspace.Metadata()
	m.Type = types.WorkspaceLocal // jj is a local-workspace variant, not a distinct wire Kind
	return m
}

// Status returns the jj working-copy status.
func (w *JJWorkspace) Status(ctx context.Context) (types.VCSStatus, error) {
	status := types.VCSStatus{Kind: types.VCSJJ}

	out, err := exec.CommandContext(ctx, "jj", "log", "--no-graph", "-r", "@", "-T",
		`change_id.short() ++ "\n" ++ bookmarks`).Output()
	if err != nil {
		return status, nil
	}
	lines := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)
	if len(lines) > 0 {
		status.Revision = lines[0]
	}
	if len(lines) > 1 {
		status.Branch = strings.TrimSpace(lines[1])
	}

	diffOut, err := exec.CommandContext(ctx, "jj", "diff", "--stat").Output()
	status.Dirty = err == nil && len(strings.TrimSpace(string(diffOut))) > 0
	return status, nil
}

// Snapshot runs `jj status`, which makes jj record the working copy (every
// working-copy write is already tracked, so no commit is made); this exists
// so callers have one codepath regardless of VCS kind.
func (w *JJWorkspace) Snapshot(ctx context.Context) error {
	return exec.CommandContext(ctx, "jj", "status").Run()
}
