package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/armap/internal/monitoring"
)

// MappingService is the health service name that reports SERVING only
// while the session is mapping. The empty service reports process health.
const MappingService = "armap.Mapping"

// HealthService publishes the standard gRPC health protocol. SetMapping
// and Check accept a nil receiver so hosts may run without gRPC.
type HealthService struct {
	hs *health.Server
}

// NewHealthService returns a health service with the process SERVING and
// mapping NOT_SERVING.
func NewHealthService() *HealthService {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(MappingService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthService{hs: hs}
}

// SetMapping toggles the mapping service status.
func (h *HealthService) SetMapping(mapping bool) {
	if h == nil {
		return
	}
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if mapping {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus(MappingService, status)
}

// Check queries the current status of service.
func (h *HealthService) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if h == nil {
		return healthpb.HealthCheckResponse_UNKNOWN, errors.New("health service not configured")
	}
	resp, err := h.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve runs a gRPC server exposing the health service on addr until ctx
// is cancelled.
func (h *HealthService) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return h.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (h *HealthService) ServeListener(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, h.hs)

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("[Health] gRPC health listening on %s", lis.Addr())
		errc <- srv.Serve(lis)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("grpc health server: %w", err)
	case <-ctx.Done():
	}
	h.hs.Shutdown()
	srv.GracefulStop()
	monitoring.Logf("[Health] gRPC health server stopped")
	return nil
}
