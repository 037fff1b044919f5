package grpc

import (
	"context"

	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	IntrospectionServiceName = "volunteerhub.auth.v1.TokenIntrospection"

	IntrospectMethod = "/" + IntrospectionServiceName + "/Introspect"
	RevokeMethod     = "/" + IntrospectionServiceName + "/Revoke"
)

// introspectionServer is the handler type checked by RegisterService.
type introspectionServer interface {
	Introspect(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Revoke(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var introspectionServiceDesc = grpc.ServiceDesc{
	ServiceName: IntrospectionServiceName,
	HandlerType: (*introspectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: unaryHandler(IntrospectMethod, introspectionServer.Introspect)},
		{MethodName: "Revoke", Handler: unaryHandler(RevokeMethod, introspectionServer.Revoke)},
	},
	Metadata: "volunteerhub/auth/v1/introspection.proto",
}

// unaryHandler adapts a method taking Empty to the generic handler signature
// generated code would otherwise provide.
func unaryHandler(
	fullMethod string,
	call func(introspectionServer, context.Context, *emptypb.Empty) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(introspectionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(introspectionServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func identityStruct(id auth.Identity) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"sub":   id.SubjectID,
		"email": id.Email,
		"role":  id.Role.String(),
		"iat":   float64(id.IssuedAt.Unix()),
		"exp":   float64(id.ExpiresAt.Unix()),
	})
}

// Introspect returns the claims of a live, unrevoked token. The interceptor
// has already run the generic guard.
func (s *GRPCServer) Introspect(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, toStatus(errNoIdentity)
	}
	return identityStruct(id)
}

// Revoke logs the caller's token out. It runs behind the logout guard, so a
// token that is already revoked is accepted again.
func (s *GRPCServer) Revoke(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	guarded, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, toStatus(errNoIdentity)
	}
	id, err := s.svc.Logout(ctx, guarded.Token)
	if err != nil {
		s.logger.Error(ctx, "revoke", "error", err)
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"message":  "Logout successful",
		"userType": id.Role.String(),
		"email":    id.Email,
	})
}
