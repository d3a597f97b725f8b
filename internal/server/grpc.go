package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"social-service/interceptor"
)

// ServiceName is the health service name reported for the API as a whole.
const ServiceName = "social.SocialService"

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// GRPCServer serves the standard health service and reflection.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	checks map[string]Check
	log    logrus.FieldLogger
}

func NewGRPCServer(checks map[string]Check, log logrus.FieldLogger) *GRPCServer {
	logging := interceptor.NewLoggingInterceptor(log, []string{
		healthpb.Health_Check_FullMethodName,
		healthpb.Health_Watch_FullMethodName,
	})

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(logging.Unary()),
		grpc.StreamInterceptor(logging.Stream()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Enable reflection for debugging tools like grpcurl
	reflection.Register(grpcServer)

	return &GRPCServer{
		server: grpcServer,
		health: healthServer,
		checks: checks,
		log:    log,
	}
}

// Serve listens on port until Stop is called.
func (s *GRPCServer) Serve(port string) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	s.log.WithField("port", port).Info("gRPC server listening")
	return s.server.Serve(listener)
}

// Server exposes the underlying grpc.Server, e.g. for an in-memory listener.
func (s *GRPCServer) Server() *grpc.Server {
	return s.server
}

// Refresh runs every check once and publishes the result. Each dependency is
// reported under its own name; the overall and ServiceName statuses are
// SERVING only when all checks pass.
func (s *GRPCServer) Refresh(ctx context.Context) bool {
	healthy := true
	for name, check := range s.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			s.log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		s.health.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	s.health.SetServingStatus(ServiceName, overall)
	return healthy
}

// Monitor refreshes health every interval until ctx is done.
func (s *GRPCServer) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval/2)
		s.Refresh(checkCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
