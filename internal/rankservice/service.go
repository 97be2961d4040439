package rankservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "atleastn.v1.Ranker"

// #region server-interface
// RankerServer is the server API for the Ranker service.
type RankerServer interface {
	Compute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rank(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv RankerServer) {
	s.RegisterService(&serviceDesc, srv)
}

// #endregion server-interface

// #region service-desc
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RankerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compute", Handler: unaryHandler("Compute", RankerServer.Compute)},
		{MethodName: "Rank", Handler: unaryHandler("Rank", RankerServer.Rank)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "atleastn/v1/ranker",
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

type unaryMethod func(RankerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RankerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RankerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service-desc
