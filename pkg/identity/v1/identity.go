// Package identityv1 describes the identity gRPC service. Messages are
// protobuf well-known types: the SSO token travels as a StringValue and the
// verified payload comes back as a Struct.
package identityv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName                                   = "srik.identity.v1.IdentityService"
	IdentityService_VerifySSOToken_FullMethodName = "/" + ServiceName + "/VerifySSOToken"

	// ServiceTokenKey is the metadata key carrying SERVICE_AUTH_TOKEN on
	// calls between SRIK services.
	ServiceTokenKey = "x-service-token"
)

type IdentityServiceClient interface {
	VerifySSOToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type identityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityServiceClient(cc grpc.ClientConnInterface) IdentityServiceClient {
	return &identityServiceClient{cc: cc}
}

func (c *identityServiceClient) VerifySSOToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IdentityService_VerifySSOToken_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type IdentityServiceServer interface {
	VerifySSOToken(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
}

func RegisterIdentityServiceServer(s grpc.ServiceRegistrar, srv IdentityServiceServer) {
	s.RegisterService(&IdentityService_ServiceDesc, srv)
}

func _IdentityService_VerifySSOToken_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServiceServer).VerifySSOToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: IdentityService_VerifySSOToken_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IdentityServiceServer).VerifySSOToken(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var IdentityService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "VerifySSOToken",
			Handler:    _IdentityService_VerifySSOToken_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "srik/identity/v1/identity.proto",
}
