package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// serviceDesc is the hand-wired equivalent of what protoc-gen-go-grpc would
// emit from proto/agent/v1/agent.proto: a ServiceDesc binding each RPC name
// to a Handler that decodes onto the wire.go structs via jsonCodec (set by
// grpc.ForceServerCodec on the server / grpc.ForceCodec on the client) rather
// than onto generated protobuf message types.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "agent.v1.AgentService",
	HandlerType: (*agentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: createSessionHandler},
		{MethodName: "ListSessions", Handler: listSessionsHandler},
		{MethodName: "DeleteSession", Handler: deleteSessionHandler},
		{MethodName: "StartAuth", Handler: startAuthHandler},
		{MethodName: "GetAuthProgress", Handler: getAuthProgressHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListFiles", Handler: listFilesHandler, ServerStreams: true},
		{StreamName: "SubscribeSessionEvents", Handler: subscribeSessionEventsHandler, ServerStreams: true},
		{StreamName: "StreamSession", Handler: streamSessionHandler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "proto/agent/v1/agent.proto",
}

func createSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(CreateSessionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(agentServiceServer)
	if interceptor == nil {
		return s.createSession(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/agent.v1.AgentService/CreateSession"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.createSession(ctx, req.(*CreateSessionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func listSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ListSessionsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(agentServiceServer)
	if interceptor == nil {
		return s.listSessions(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/agent.v1.AgentService/ListSessions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.listSessions(ctx, req.(*ListSessionsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func deleteSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(DeleteSessionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(agentServiceServer)
	if interceptor == nil {
		return s.deleteSession(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/agent.v1.AgentService/DeleteSession"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.deleteSession(ctx, req.(*DeleteSessionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func startAuthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(StartAuthRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(agentServiceServer)
	if interceptor == nil {
		return s.startAuth(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/agent.v1.AgentService/StartAuth"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.startAuth(ctx, req.(*StartAuthRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getAuthProgressHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetAuthProgressRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	s := srv.(agentServiceServer)
	if interceptor == nil {
		return s.getAuthProgress(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/agent.v1.AgentService/GetAuthProgress"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.getAuthProgress(ctx, req.(*GetAuthProgressRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func listFilesHandler(srv any, stream grpc.ServerStream) error {
	req := new(ListFilesRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).listFiles(req, stream)
}

func subscribeSessionEventsHandler(srv any, stream grpc.ServerStream) error {
	req := new(SubscribeSessionEventsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).subscribeSessionEvents(req, stream)
}

func streamSessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(*Server).streamSession(stream)
}
