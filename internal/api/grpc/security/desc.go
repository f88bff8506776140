package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.v1.SecurityService"

// Full method names used by clients.
const (
	MethodGetState               = "/" + ServiceName + "/GetState"
	MethodSetArmingStatus        = "/" + ServiceName + "/SetArmingStatus"
	MethodChangeSensorActivation = "/" + ServiceName + "/ChangeSensorActivation"
	MethodProcessImage           = "/" + ServiceName + "/ProcessImage"
	MethodAddSensor              = "/" + ServiceName + "/AddSensor"
	MethodRemoveSensor           = "/" + ServiceName + "/RemoveSensor"
)

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	GetState(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveSensor(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// ServiceDesc describes the security service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unaryHandler(MethodGetState, SecurityServiceServer.GetState)},
		{MethodName: "SetArmingStatus", Handler: unaryHandler(MethodSetArmingStatus, SecurityServiceServer.SetArmingStatus)},
		{
			MethodName: "ChangeSensorActivation",
			Handler:    unaryHandler(MethodChangeSensorActivation, SecurityServiceServer.ChangeSensorActivation),
		},
		{MethodName: "ProcessImage", Handler: unaryHandler(MethodProcessImage, SecurityServiceServer.ProcessImage)},
		{MethodName: "AddSensor", Handler: unaryHandler(MethodAddSensor, SecurityServiceServer.AddSensor)},
		{MethodName: "RemoveSensor", Handler: unaryHandler(MethodRemoveSensor, SecurityServiceServer.RemoveSensor)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catpoint/v1/security.proto",
}

// RegisterSecurityServiceServer registers the implementation with a gRPC server.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodHandler, honoring interceptors.
func unaryHandler[Req any](
	fullMethod string,
	call func(SecurityServiceServer, context.Context, *Req) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(SecurityServiceServer)

		if interceptor == nil {
			return call(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*Req)

			return call(server, ctx, typed)
		})
	}
}
