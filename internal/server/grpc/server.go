// Package grpc exposes token introspection and revocation to internal
// services over gRPC. Callers pass the bearer token in the "authorization"
// metadata key, exactly as HTTP clients do in the header.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AuthAPI is what the gRPC surface needs from the auth service.
type AuthAPI interface {
	auth.Authenticator
	Logout(ctx context.Context, token string) (auth.Identity, error)
}

type GRPCServer struct {
	address string
	svc     AuthAPI
	guard   *auth.Guard
	health  *health.Server
	logger  logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, svc AuthAPI) *GRPCServer {
	return &GRPCServer{
		address: address,
		svc:     svc,
		guard:   auth.NewGuard(svc),
		health:  health.NewServer(),
		logger:  l.With("module", "grpc_server"),
	}
}

// newServer builds the grpc.Server with every service registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.authInterceptor))

	srv.RegisterService(&introspectionServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(IntrospectionServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
