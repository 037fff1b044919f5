package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthorizationMetadataKey is the metadata key carrying "Bearer <token>".
const AuthorizationMetadataKey = "authorization"

var errNoIdentity = fmt.Errorf("handler reached without identity: %w", common.ErrorInternal)

type guardKind int

const (
	guardGeneric guardKind = iota
	guardLogout
)

// guardedMethods lists the methods behind a guard. Anything else, such as
// the health service, is open.
var guardedMethods = map[string]guardKind{
	IntrospectMethod: guardGeneric,
	RevokeMethod:     guardLogout,
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(AuthorizationMetadataKey)
	if len(values) == 0 {
		return ""
	}
	return auth.BearerToken(values[0])
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	kind, ok := guardedMethods[info.FullMethod]
	if !ok {
		return handler(ctx, req)
	}

	token := tokenFromMetadata(ctx)

	var (
		id  auth.Identity
		err error
	)
	switch kind {
	case guardLogout:
		id, err = s.guard.Logout(token)
	default:
		id, err = s.guard.Generic(ctx, token)
	}
	if err != nil {
		if common.Kind(err) == common.KindInternal {
			s.logger.Error(ctx, "guard failed", "method", info.FullMethod, "error", err)
		}
		return nil, toStatus(err)
	}

	return handler(auth.WithIdentity(ctx, id), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// toStatus maps the error taxonomy onto gRPC codes. Internal details are
// never sent to the caller.
func toStatus(err error) error {
	switch common.Kind(err) {
	case common.KindInvalidCredentials:
		return status.Error(codes.Unauthenticated, common.ErrInvalidCredentials.Error())
	case common.KindMissingToken:
		return status.Error(codes.InvalidArgument, common.ErrMissingToken.Error())
	case common.KindInvalidToken:
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	case common.KindUnauthorized:
		return status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	case common.KindForbidden:
		return status.Error(codes.PermissionDenied, common.ErrForbidden.Error())
	case common.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case common.KindAlreadyExists:
		return status.Error(codes.AlreadyExists, common.ErrAlreadyExists.Error())
	case common.KindNotFound:
		return status.Error(codes.NotFound, common.ErrorNotFound.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}
