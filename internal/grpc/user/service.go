package user

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "usertrace.UserService"

// Full method names
const (
	GetUserDataMethod     = "/" + ServiceName + "/GetUserData"
	GetOrCreateUserMethod = "/" + ServiceName + "/GetOrCreateUser"
)

// UserServiceServer is the server API for the user service
type UserServiceServer interface {
	GetUserData(context.Context, *GetUserDataRequest) (*GetUserDataResponse, error)
	GetOrCreateUser(context.Context, *GetOrCreateUserRequest) (*GetOrCreateUserResponse, error)
}

// RegisterUserServiceServer registers srv with the gRPC server
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getUserDataHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetUserDataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).GetUserData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetUserDataMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).GetUserData(ctx, req.(*GetUserDataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrCreateUserHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetOrCreateUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).GetOrCreateUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetOrCreateUserMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).GetOrCreateUser(ctx, req.(*GetOrCreateUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the user service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetUserData",
			Handler:    getUserDataHandler,
		},
		{
			MethodName: "GetOrCreateUser",
			Handler:    getOrCreateUserHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "usertrace/user.proto",
}
