package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// JSONCodec implements encoding.Codec over the request/response structs in
// wire.go directly, so the Agent Service never needs protoc-generated
// .pb.go types: a hand-wired grpc.ServiceDesc plus this codec is enough to
// run a real gRPC server over plain Go structs. The server and every client
// must force it explicitly (grpc.ForceServerCodec / grpc.ForceCodec)
// instead of relying on content-type negotiation, since no protobuf
// messages exist here for the default codec to marshal.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string { return "json" }

var jsonCodec = JSONCodec{}

var _ encoding.Codec = JSONCodec{}
