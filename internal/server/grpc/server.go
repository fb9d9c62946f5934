// Package grpc serves the standard gRPC health protocol so that load
// balancers and orchestrators can probe the storage backends.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/secure-doc/imagey-cloud/internal/logging"
)

// ServiceName is the service reported by the health endpoint besides the
// empty overall name.
const ServiceName = "imagey.cloud"

// Pinger is a dependency whose reachability decides the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	healthpb.UnimplementedHealthServer
	address string
	checks  []Pinger
	logger  logging.Logger
}

func NewHealthServer(a string, l logging.Logger, checks ...Pinger) *HealthServer {
	return &HealthServer{
		address: a,
		checks:  checks,
		logger:  l.With("module", "grpc_server"),
	}
}

// Check pings every dependency on each call; no status is cached.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "dependency unavailable", "error", err)
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
