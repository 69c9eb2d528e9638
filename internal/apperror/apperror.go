// Package apperror defines the runtime's error taxonomy: a small
// set of exported error types, each carrying a stable Kind string, wrapping
// an optional underlying cause. No third-party errors library is used here —
// every package wraps with fmt.Errorf("...: %w", err) rather
// than importing one, and the taxonomy itself is a closed, small set of
// kinds rather than an open hierarchy, so the standard library's errors.As /
// errors.Is over a handful of struct types is the idiomatic fit.
package apperror

import (
	"errors"
	"fmt"
)

// Kind is a stable, user-visible error classification. Kinds never
// change shape once shipped: callers match on them with errors.As, and the
// RPC layer maps them to response error codes.
type Kind string

const (
	KindAuth Kind = "auth"

	KindLlmProvider Kind = "llm.provider"
	KindLlmNetwork  Kind = "llm.network"
	KindLlmTimeout  Kind = "llm.timeout"

	KindToolInvalidParams Kind = "tool.invalid_params"
	KindToolExecution     Kind = "tool.execution"
	KindToolIO            Kind = "tool.io"
	KindToolUnknown       Kind = "tool.unknown_tool"
	KindToolCancelled     Kind = "tool.cancelled"

	KindWorkspaceNotFound   Kind = "workspace.not_found"
	KindWorkspacePermission Kind = "workspace.permission"
	KindWorkspaceTransport  Kind = "workspace.transport"

	KindSessionNotFound Kind = "session.not_found"
	KindSessionBusy     Kind = "session.busy"
	KindSessionCorrupt  Kind = "session.corrupt"

	KindStorageBackend      Kind = "storage.backend"
	KindStorageSerialization Kind = "storage.serialization"

	KindProtocolMalformed    Kind = "protocol.malformed"
	KindProtocolSequenceGap  Kind = "protocol.sequence_gap"
	KindProtocolLaggedBy     Kind = "protocol.lagged_by"

	KindConfigInvalid Kind = "config.invalid"
)

// Error is the concrete type every constructor in this package returns. Its
// Message is always safe to surface to a user — never a raw credential or
// secret value.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Code carries an LLM provider's own error code for KindLlmProvider.
	Code string
	// What/Why carry the offending field and reason for KindConfigInvalid.
	What string
	Why  string
	// N carries the lag count for KindProtocolLaggedBy.
	N int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func Auth(msg string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Cause: cause}
}

func LlmProvider(code, msg string, cause error) *Error {
	return &Error{Kind: KindLlmProvider, Code: code, Message: msg, Cause: cause}
}

func LlmNetwork(cause error) *Error {
	return &Error{Kind: KindLlmNetwork, Message: "network error talking to model provider", Cause: cause}
}

func LlmTimeout(cause error) *Error {
	return &Error{Kind: KindLlmTimeout, Message: "timed out waiting on model provider", Cause: cause}
}

func ToolInvalidParams(toolName, msg string) *Error {
	return &Error{Kind: KindToolInvalidParams, Message: fmt.Sprintf("%s: %s", toolName, msg)}
}

func ToolExecution(toolName string, cause error) *Error {
	return &Error{Kind: KindToolExecution, Message: fmt.Sprintf("%s failed", toolName), Cause: cause}
}

func ToolIO(toolName string, cause error) *Error {
	return &Error{Kind: KindToolIO, Message: fmt.Sprintf("%s: io error", toolName), Cause: cause}
}

func ToolUnknown(toolName string) *Error {
	return &Error{Kind: KindToolUnknown, Message: fmt.Sprintf("unknown tool %q", toolName)}
}

func ToolCancelled(toolName string) *Error {
	return &Error{Kind: KindToolCancelled, Message: fmt.Sprintf("%s cancelled", toolName)}
}

func WorkspaceNotFound(path string) *Error {
	return &Error{Kind: KindWorkspaceNotFound, Message: fmt.Sprintf("not found: %s", path)}
}

func WorkspacePermission(path string) *Error {
	return &Error{Kind: KindWorkspacePermission, Message: fmt.Sprintf("permission denied: %s", path)}
}

func WorkspaceTransport(cause error) *Error {
	return &Error{Kind: KindWorkspaceTransport, Message: "workspace transport error", Cause: cause}
}

func SessionNotFound(id string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: fmt.Sprintf("session %s not found", id)}
}

func SessionBusy(id string) *Error {
	return &Error{Kind: KindSessionBusy, Message: fmt.Sprintf("session %s is processing a turn", id)}
}

func SessionCorrupt(id string, cause error) *Error {
	return &Error{Kind: KindSessionCorrupt, Message: fmt.Sprintf("session %s state is corrupt", id), Cause: cause}
}

func StorageBackend(cause error) *Error {
	return &Error{Kind: KindStorageBackend, Message: "storage backend error", Cause: cause}
}

func StorageSerialization(cause error) *Error {
	return &Error{Kind: KindStorageSerialization, Message: "serialization error", Cause: cause}
}

func ProtocolMalformed(msg string) *Error {
	return &Error{Kind: KindProtocolMalformed, Message: msg}
}

func ProtocolSequenceGap(sessionID string) *Error {
	return &Error{Kind: KindProtocolSequenceGap, Message: fmt.Sprintf("sequence gap on session %s", sessionID)}
}

func ProtocolLaggedBy(n int) *Error {
	return &Error{Kind: KindProtocolLaggedBy, N: n, Message: fmt.Sprintf("subscriber lagged by %d events", n)}
}

func ConfigInvalid(what, why string) *Error {
	return &Error{Kind: KindConfigInvalid, What: what, Why: why, Message: fmt.Sprintf("%s: %s", what, why)}
}
