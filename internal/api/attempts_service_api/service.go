package attempts_service_api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "flysmart.attempts.v1.AttemptsService"

const (
	getAttemptMethod   = "/" + ServiceName + "/GetAttempt"
	watchAttemptMethod = "/" + ServiceName + "/WatchAttempt"
)

// AttemptsServiceServer exchanges attempts as structpb documents shaped like the HTTP view.
// Requests carry {"id": "<attempt id>"}.
type AttemptsServiceServer interface {
	GetAttempt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WatchAttempt(req *structpb.Struct, stream grpc.ServerStream) error
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AttemptsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAttempt", Handler: getAttemptHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchAttempt", Handler: watchAttemptHandler, ServerStreams: true},
	},
	Metadata: "flysmart/attempts/v1/attempts.proto",
}

func RegisterAttemptsServiceServer(s grpc.ServiceRegistrar, srv AttemptsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getAttemptHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AttemptsServiceServer).GetAttempt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getAttemptMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AttemptsServiceServer).GetAttempt(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchAttemptHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AttemptsServiceServer).WatchAttempt(in, stream)
}

// Client is the caller side of AttemptsService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetAttempt(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getAttemptMethod, idRequest(id), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchAttempt calls fn for every update until the attempt settles or fn returns an error.
func (c *Client) WatchAttempt(ctx context.Context, id string, fn func(*structpb.Struct) error, opts ...grpc.CallOption) error {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], watchAttemptMethod, opts...)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(idRequest(id)); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			return err
		}
		if err := fn(out); err != nil {
			return err
		}
	}
}

func idRequest(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}
