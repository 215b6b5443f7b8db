package generation

import (
	"context"

	"google.golang.org/grpc"
)

// GenerationServer is the server half of the protocol. The repository only
// ships clients; this exists for in-process engines and test doubles.
type GenerationServer interface {
	Generate(req *Request, stream AnswerSender) error
}

type AnswerSender interface {
	Context() context.Context
	Send(*Answer) error
}

// ServerCodec must be passed to grpc.NewServer for services registered with
// RegisterGenerationServer.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(wireCodec{})
}

func RegisterGenerationServer(s grpc.ServiceRegistrar, srv GenerationServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GenerationServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Generate",
			Handler:       generateHandler,
			ServerStreams: true,
		},
	},
}

func generateHandler(srv any, stream grpc.ServerStream) error {
	req := new(Request)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(GenerationServer).Generate(req, answerSender{stream: stream})
}

type answerSender struct {
	stream grpc.ServerStream
}

func (s answerSender) Context() context.Context {
	return s.stream.Context()
}

func (s answerSender) Send(a *Answer) error {
	return s.stream.SendMsg(a)
}
