// Package rpc is the Agent Service: the one place in this runtime that
// speaks the wire protocol described by proto/agent/v1/agent.proto. It
// translates every inbound RPC into a session.Action or a direct
// session.Manager call, and translates every outbound types.SessionEvent
// into a wire SessionEvent, so internal/session and everything it drives
// stays entirely unaware that gRPC exists.
package rpc

import "github.com/steerrt/agentrt/pkg/types"

// CreateSessionRequest is the unary CreateSession payload. Config is the
// session's full types.SessionConfig, reused verbatim rather than a
// parallel wire-only struct since its JSON shape already is the wire shape.
type CreateSessionRequest struct {
	Config types.SessionConfig `json:"config"`
	Title  string              `json:"title,omitempty"`
}

// SessionResponse wraps the header CreateSession/ResumeSession hand back.
type SessionResponse struct {
	Header types.SessionHeader `json:"header"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []types.SessionHeader `json:"sessions"`
}

type DeleteSessionRequest struct {
	SessionID string `json:"sessionID"`
}

type DeleteSessionResponse struct{}

// ListFilesRequest drives the ListFiles server-stream: Query is a glob
// pattern against the session's workspace, "" matches everything;
// MaxResults <= 0 means unbounded.
type ListFilesRequest struct {
	SessionID  string `json:"sessionID"`
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type FileChunk struct {
	Path string `json:"path"`
}

type StartAuthRequest struct {
	ProviderID string `json:"providerID"`
}

type StartAuthResponse struct {
	FlowID       string `json:"flowID"`
	Instructions string `json:"instructions"`
}

type GetAuthProgressRequest struct {
	FlowID string `json:"flowID"`
}

// AuthState is one AuthProgress.State value.
type AuthState string

const (
	AuthPending    AuthState = "pending"
	AuthNeedsInput AuthState = "needs_input"
	AuthComplete   AuthState = "complete"
	AuthError      AuthState = "error"
)

type AuthProgress struct {
	State  AuthState `json:"state"`
	Prompt string    `json:"prompt,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// SubscribeSessionEventsRequest drives the SubscribeSessionEvents
// server-stream. Config is required so the server can resume the session
// if it isn't currently resident; see Server's configs cache.
type SubscribeSessionEventsRequest struct {
	SessionID     string              `json:"sessionID"`
	Config        types.SessionConfig `json:"config"`
	SinceSequence uint64              `json:"sinceSequence"`
}

// ClientMessageKind discriminates one StreamSession inbound frame.
type ClientMessageKind string

const (
	ClientSubscribe   ClientMessageKind = "subscribe"
	ClientSendMessage ClientMessageKind = "send_message"
	ClientCancel      ClientMessageKind = "cancel"
	ClientApprove     ClientMessageKind = "approve"
)

// ClientMessage is one inbound frame of the bidirectional StreamSession RPC.
type ClientMessage struct {
	Kind ClientMessageKind `json:"kind"`

	// Subscribe
	SessionID     string              `json:"sessionID,omitempty"`
	Config        types.SessionConfig `json:"config,omitempty"`
	SinceSequence uint64              `json:"sinceSequence,omitempty"`

	// SendMessage
	Text string `json:"text,omitempty"`

	// Cancel / Approve apply to the most recently subscribed session.
	RequestID string `json:"requestID,omitempty"`
	Approved  bool   `json:"approved,omitempty"`
}
