package detector

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthChecker probes model servers over the standard gRPC health service.
// Serving backends expose it next to their HTTP predict endpoints.
type HealthChecker struct {
	addrs   []string
	timeout time.Duration
}

// NewHealthChecker creates a checker for the given gRPC health addresses.
func NewHealthChecker(addrs []string, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{addrs: addrs, timeout: timeout}
}

// Ping verifies every configured backend reports SERVING. The first failing
// backend aborts the probe.
func (h *HealthChecker) Ping(ctx context.Context) error {
	for _, addr := range h.addrs {
		if err := h.pingOne(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}

func (h *HealthChecker) pingOne(ctx context.Context, addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", addr, err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("model server %s not serving: %s", addr, resp.Status)
	}
	return nil
}
