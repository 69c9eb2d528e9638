package rpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin wrapper over a grpc.ClientConn dialed against the Agent
// Service, used by the CLI's session subcommands so they exercise the same
// RPC surface a remote client would rather than reaching into
// internal/session directly.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to an Agent Service listening at target (host:port).
func Dial(target string) (*Client, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	reply := new(SessionResponse)
	if err := c.conn.Invoke(ctx, "/agent.v1.AgentService/CreateSession", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) ListSessions(ctx context.Context) (*ListSessionsResponse, error) {
	reply := new(ListSessionsResponse)
	req := &ListSessionsRequest{}
	if err := c.conn.Invoke(ctx, "/agent.v1.AgentService/ListSessions", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	reply := new(DeleteSessionResponse)
	req := &DeleteSessionRequest{SessionID: id}
	return c.conn.Invoke(ctx, "/agent.v1.AgentService/DeleteSession", req, reply)
}

func (c *Client) StartAuth(ctx context.Context, providerID string) (*StartAuthResponse, error) {
	reply := new(StartAuthResponse)
	req := &StartAuthRequest{ProviderID: providerID}
	if err := c.conn.Invoke(ctx, "/agent.v1.AgentService/StartAuth", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) GetAuthProgress(ctx context.Context, flowID string) (*AuthProgress, error) {
	reply := new(AuthProgress)
	req := &GetAuthProgressRequest{FlowID: flowID}
	if err := c.conn.Invoke(ctx, "/agent.v1.AgentService/GetAuthProgress", req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// ListFiles opens the ListFiles server-stream and returns every path once
// the stream completes.
func (c *Client) ListFiles(ctx context.Context, sessionID, query string, maxResults int) ([]string, error) {
	desc := &grpc.StreamDesc{StreamName: "ListFiles", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/agent.v1.AgentService/ListFiles")
	if err != nil {
		return nil, err
	}
	req := &ListFilesRequest{SessionID: sessionID, Query: query, MaxResults: maxResults}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	var paths []string
	for {
		chunk := new(FileChunk)
		if err := stream.RecvMsg(chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return paths, err
		}
		paths = append(paths, chunk.Path)
	}
	return paths, nil
}
