package healthcheck

import (
	"context"
	"net"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported next to the
// overall ("") status.
const ServiceName = "ordermgmt"

// GRPCServer exposes the checker through grpc.health.v1.Health.
type GRPCServer struct {
	checker  *Checker
	interval time.Duration
	logger   watermill.LoggerAdapter

	health *health.Server
	server *grpc.Server
}

func NewGRPCServer(checker *Checker, interval time.Duration, logger watermill.LoggerAdapter) *GRPCServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &GRPCServer{
		checker:  checker,
		interval: interval,
		logger:   logger,
		health:   hs,
		server:   server,
	}
}

// Refresh runs the checks once and publishes the resulting status.
func (s *GRPCServer) Refresh(ctx context.Context) Report {
	report := s.checker.Check(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	return report
}

// Run refreshes the status every interval until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) {
	s.Refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Serve blocks serving gRPC on lis until Stop is called.
func (s *GRPCServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server listening", watermill.LogFields{"addr": lis.Addr().String()})

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "gRPC health server failed")
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains open calls.
func (s *GRPCServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
