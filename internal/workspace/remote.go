package workspace

import (
	"sync"
	"time"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/pkg/types"
	"google.golang.org/grpc"
)

// RemoteEnvironmentTTL is the cache lifetime for a RemoteWorkspace's
// EnvironmentInfo. Remote round-trips are expensive (a full RPC versus a
// local os.Stat), so this is an order of magnitude longer than
// LocalEnvironmentTTL — the two are kept as distinct named constants rather
// than unified, since the right cache lifetime genuinely differs by
// transport cost.
const RemoteEnvironmentTTL = 5 * time.Minute

// RemoteWorkspace stands for a workspace hosted by another process, reached
// through a gRPC connection. It makes no RPCs: Metadata and WorkingDirectory
// report the address, and every capability call returns a WorkspaceTransport
// error.
type RemoteWorkspace struct {
	id      string
	address string
	conn    *grpc.ClientConn

	mu    sync.Mutex
	env   *EnvironmentInfo
	envAt time.Time
}

// NewRemoteWorkspace wraps conn, an already-created connection to address;
// it does not dial.
func NewRemoteWorkspace(id, address string, conn *grpc.ClientConn) *RemoteWorkspace {
	return &RemoteWorkspace{id: id, address: address, conn: conn}
}

func (w *RemoteWorkspace) Metadata() Metadata {
	return Metadata{ID: w.id, Type: types.WorkspaceRemote, Location: w.address}
}

func (w *RemoteWorkspace) WorkingDirectory() string { return w.address }

// callUnimplemented is the placeholder for every capability until the
// remote agent.v1.WorkspaceService contract (proto/agent/v1/agent.proto) is
// implemented by a counterpart server; it fails closed with a transport
// error rather than silently no-op-ing.
func (w *RemoteWorkspace) callUnimplemented(op string) error {
	if w.conn == nil {
		return apperror.WorkspaceTransport(apperror.ProtocolMalformed("remote workspace " + w.id + " has no connection for " + op))
	}
	return apperror.WorkspaceTransport(apperror.ProtocolMalformed(op + " not yet implemented over the remote workspace RPC"))
}

func (w *RemoteWorkspace) ListFiles(oc OpContext, pattern string) ([]string, error) {
	return nil, w.callUnimplemented("list_files")
}

func (w *RemoteWorkspace) ReadFile(oc OpContext, path string, offset, limit int) (string, error) {
	return "", w.callUnimplemented("read_file")
}

func (w *RemoteWorkspace) ListDirectory(oc OpContext, path string) ([]string, error) {
	return nil, w.callUnimplemented("list_directory")
}

func (w *RemoteWorkspace) Glob(oc OpContext, pattern string) ([]string, error) {
	return nil, w.callUnimplemented("glob")
}

func (w *RemoteWorkspace) Grep(oc OpContext, pattern, pathFilter string) ([]GrepMatch, error) {
	return nil, w.callUnimplemented("grep")
}

func (w *RemoteWorkspace) AstGrep(oc OpContext, pattern, lang, pathFilter string) ([]GrepMatch, error) {
	return nil, w.callUnimplemented("astgrep")
}

func (w *RemoteWorkspace) ApplyEdits(oc OpContext, path string, edits []FileEdit) (*EditResult, error) {
	return nil, w.callUnimplemented("apply_edits")
}

func (w *RemoteWorkspace) WriteFile(oc OpContext, path, content string) error {
	return w.callUnimplemented("write_file")
}

func (w *RemoteWorkspace) Environment(oc OpContext) (EnvironmentInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.env != nil && time.Since(w.envAt) < RemoteEnvironmentTTL {
		return *w.env, nil
	}
	return EnvironmentInfo{}, w.callUnimplemented("environment")
}

func (w *RemoteWorkspace) InvalidateEnvironmentCache() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.env = nil
}
