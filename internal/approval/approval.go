// Package approval implements the session's tool-approval gate: a per-session set of always-approved (tool_name, parameter
// fingerprint) tuples, plus the oneshot request/response channel pattern
// that parks an executor while a human decides.
package approval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/steerrt/agentrt/pkg/types"
)

// Decision is the user's answer to an ApprovalRequested event.
type Decision string

const (
	Approved          Decision = "approved"
	ApprovedForSession Decision = "approved_for_session"
	Denied            Decision = "denied"
)

// Fingerprint derives the stable parameter fingerprint used to key an
// always-approve grant: a SHA-256 hash of the tool call's raw JSON parameter
// bytes, taken as given (not canonicalized). Two calls to the same tool with
// byte-identical parameters hash equal.
func Fingerprint(raw json.RawMessage) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Gate tracks always-approve grants for one session and parks callers on a
// oneshot response channel until RespondToApproval resolves them.
type Gate struct {
	mu      sync.RWMutex
	granted map[types.ApprovalGrant]bool
	pending map[string]chan Decision
}

// New returns an empty gate, optionally seeded with grants restored from
// persistence.
func New(seed []types.ApprovalGrant) *Gate {
	g := &Gate{
		granted: make(map[types.ApprovalGrant]bool, len(seed)),
		pending: make(map[string]chan Decision),
	}
	for _, grant := range seed {
		g.granted[grant] = true
	}
	return g
}

// IsGranted reports whether call has an always-approve grant already on file.
func (g *Gate) IsGranted(call types.ToolCall) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted[types.ApprovalGrant{ToolName: call.Name, ParameterFingerprint: Fingerprint(call.ParametersRaw)}]
}

// Grants returns a snapshot of the always-approve set for persistence.
func (g *Gate) Grants() []types.ApprovalGrant {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.ApprovalGrant, 0, len(g.granted))
	for grant := range g.granted {
		out = append(out, grant)
	}
	return out
}

// Request parks the caller until RespondToApproval(requestID, ...) is
// called or ctx is cancelled. The caller is responsible for publishing the
// ApprovalRequested event carrying requestID before calling Request.
func (g *Gate) Request(ctx context.Context, requestID string, call types.ToolCall) (Decision, error) {
	ch := make(chan Decision, 1)
	g.mu.Lock()
	g.pending[requestID] = ch
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, requestID)
		g.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Denied, ctx.Err()
	case decision := <-ch:
		if decision == ApprovedForSession {
			g.mu.Lock()
			g.granted[types.ApprovalGrant{ToolName: call.Name, ParameterFingerprint: Fingerprint(call.ParametersRaw)}] = true
			g.mu.Unlock()
		}
		return decision, nil
	}
}

// Respond resolves a pending Request. A response for an unknown or
// already-resolved requestID is silently dropped (the executor may have
// moved on after a cancellation).
func (g *Gate) Respond(requestID string, decision Decision) {
	g.mu.RLock()
	ch, ok := g.pending[requestID]
	g.mu.RUnlock()
	if ok {
		ch <- decision
	}
}

// Clear drops every always-approve grant, used when a session's tool_config
// is replaced wholesale.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = make(map[types.ApprovalGrant]bool)
}
