package rpc

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"

	"github.com/steerrt/agentrt/internal/apperror"
	"github.com/steerrt/agentrt/internal/credential"
	"github.com/steerrt/agentrt/internal/session"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/pkg/types"
)

// agentServiceServer is the interface grpc.Server.RegisterService checks
// Server against via reflection before wiring serviceDesc's handlers to it.
type agentServiceServer interface {
	createSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error)
	listSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error)
	deleteSession(ctx context.Context, req *DeleteSessionRequest) (*DeleteSessionResponse, error)
	startAuth(ctx context.Context, req *StartAuthRequest) (*StartAuthResponse, error)
	getAuthProgress(ctx context.Context, req *GetAuthProgressRequest) (*AuthProgress, error)
}

// Server is the Agent Service: a thin adapter from RPC calls to
// session.Manager calls/Actions and from types.SessionEvent to wire
// SessionEvent frames. It holds no session state itself beyond what a
// client needs to resume a session the Manager has evicted from memory,
// since persist.DB's SessionHeader doesn't carry the SessionConfig a
// ResumeSession call requires.
type Server struct {
	manager *session.Manager
	creds   *credential.Store

	mu       sync.RWMutex
	configs  map[string]types.SessionConfig
	authFlows map[string]*authFlow
}

// NewServer returns an Agent Service adapter over manager, with creds wired
// for StartAuth/GetAuthProgress.
func NewServer(manager *session.Manager, creds *credential.Store) *Server {
	return &Server{
		manager:   manager,
		creds:     creds,
		configs:   make(map[string]types.SessionConfig),
		authFlows: make(map[string]*authFlow),
	}
}

// Register adds the Agent Service to gs under the hand-wired ServiceDesc
// (no protoc-gen-go-grpc stub exists in this tree; see
// proto/agent/v1/agent.proto for the contract serviceDesc implements).
func Register(gs *grpc.Server, srv *Server) {
	gs.RegisterService(&serviceDesc, srv)
}

func (s *Server) rememberConfig(id string, cfg types.SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[id] = cfg
}

func (s *Server) configFor(id string, fallback types.SessionConfig) types.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[id]; ok {
		return cfg
	}
	return fallback
}

func (s *Server) createSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	sess, err := s.manager.CreateSession(ctx, req.Config, req.Title, nil)
	if err != nil {
		return nil, err
	}
	s.rememberConfig(sess.ID(), req.Config)
	return &SessionResponse{Header: types.SessionHeader{
		ID:        sess.ID(),
		Title:     sess.Title(),
		CreatedAt: 0,
		Metadata:  req.Config.Metadata,
	}}, nil
}

func (s *Server) listSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error) {
	headers, err := s.manager.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	return &ListSessionsResponse{Sessions: headers}, nil
}

func (s *Server) deleteSession(ctx context.Context, req *DeleteSessionRequest) (*DeleteSessionResponse, error) {
	if err := s.manager.DeleteSession(ctx, req.SessionID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	delete(s.configs, req.SessionID)
	delete(s.authFlows, req.SessionID)
	s.mu.Unlock()
	return &DeleteSessionResponse{}, nil
}

// listFiles streams every path in the session's workspace matching
// req.Query (a glob pattern; "" matches everything) up to req.MaxResults.
func (s *Server) listFiles(req *ListFilesRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	cfg := s.configFor(req.SessionID, types.SessionConfig{})
	sess, err := s.manager.ResumeSession(ctx, req.SessionID, cfg)
	if err != nil {
		return err
	}

	pattern := req.Query
	if pattern == "" {
		pattern = "**/*"
	}
	paths, err := sess.Workspace().Glob(workspace.OpContext{Ctx: ctx, Op: "rpc.ListFiles"}, pattern)
	if err != nil {
		return err
	}
	if req.MaxResults > 0 && len(paths) > req.MaxResults {
		paths = paths[:req.MaxResults]
	}
	for _, p := range paths {
		if err := stream.SendMsg(&FileChunk{Path: p}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) startAuth(ctx context.Context, req *StartAuthRequest) (*StartAuthResponse, error) {
	flow := newAuthFlow(req.ProviderID, s.creds)
	s.mu.Lock()
	s.authFlows[flow.id] = flow
	s.mu.Unlock()
	return &StartAuthResponse{FlowID: flow.id, Instructions: flow.instructions}, nil
}

func (s *Server) getAuthProgress(ctx context.Context, req *GetAuthProgressRequest) (*AuthProgress, error) {
	s.mu.RLock()
	flow, ok := s.authFlows[req.FlowID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.ConfigInvalid("flow_id", fmt.Sprintf("unknown auth flow %q", req.FlowID))
	}
	return flow.progress(ctx), nil
}

// subscribeSessionEvents streams req's session's journal from
// req.SinceSequence onward, tailing live until ctx is cancelled.
func (s *Server) subscribeSessionEvents(req *SubscribeSessionEventsRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	cfg := s.configFor(req.SessionID, req.Config)
	backlog, events, unsubscribe, err := s.manager.SubscribeEvents(ctx, req.SessionID, cfg, req.SinceSequence)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for _, ev := range backlog {
		if err := stream.SendMsg(&ev); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&ev); err != nil {
				return err
			}
		}
	}
}

// streamSession implements the bidirectional StreamSession RPC: inbound
// ClientMessages select and drive one session (Subscribe/SendMessage/
// Cancel/Approve), outbound frames are that session's journal events.
func (s *Server) streamSession(stream grpc.ServerStream) error {
	ctx := stream.Context()

	var (
		mu         sync.Mutex
		sessionID  string
		cfg        types.SessionConfig
		unsubscribe func()
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}()

	errCh := make(chan error, 1)

	for {
		in := new(ClientMessage)
		if err := stream.RecvMsg(in); err != nil {
			return err
		}

		switch in.Kind {
		case ClientSubscribe:
			mu.Lock()
			if unsubscribe != nil {
				unsubscribe()
			}
			sessionID = in.SessionID
			cfg = s.configFor(sessionID, in.Config)
			mu.Unlock()

			backlog, events, unsub, err := s.manager.SubscribeEvents(ctx, sessionID, cfg, in.SinceSequence)
			if err != nil {
				return err
			}
			mu.Lock()
			unsubscribe = unsub
			mu.Unlock()

			for _, ev := range backlog {
				if err := stream.SendMsg(&ev); err != nil {
					return err
				}
			}
			go forwardEvents(events, stream, errCh)

		case ClientSendMessage:
			action := &session.Action{Kind: session.ActionSendMessage, UserContent: []types.UserContent{types.NewUserText(in.Text)}}
			if _, err := s.manager.DispatchAction(ctx, sessionID, cfg, action); err != nil {
				return err
			}

		case ClientCancel:
			action := &session.Action{Kind: session.ActionCancelCurrentTurn}
			if _, err := s.manager.DispatchAction(ctx, sessionID, cfg, action); err != nil {
				return err
			}

		case ClientApprove:
			decision := approvalDecisionFor(in.Approved)
			action := &session.Action{Kind: session.ActionRespondToApproval, RequestID: in.RequestID, Decision: decision}
			if _, err := s.manager.DispatchAction(ctx, sessionID, cfg, action); err != nil {
				return err
			}
		}

		select {
		case err := <-errCh:
			return err
		default:
		}
	}
}

func forwardEvents(events <-chan types.SessionEvent, stream grpc.ServerStream, errCh chan<- error) {
	for ev := range events {
		if err := stream.SendMsg(&ev); err != nil {
			errCh <- err
			return
		}
	}
}
