package facades

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sbilibin2017/gw-wallet-ledger/internal/logger"
)

// LedgerServiceName is the service name reported by the health server.
const LedgerServiceName = "wallet.ledger"

// DependencyCheck checks one dependency; a nil error means reachable.
type DependencyCheck func(ctx context.Context) error

// HealthGRPCFacade drives a gRPC health server from dependency checks.
type HealthGRPCFacade struct {
	server  *health.Server
	checks  map[string]DependencyCheck
	timeout time.Duration
}

// NewHealthGRPCFacade creates a facade over server. Each check is given timeout to answer.
func NewHealthGRPCFacade(server *health.Server, checks map[string]DependencyCheck, timeout time.Duration) *HealthGRPCFacade {
	return &HealthGRPCFacade{server: server, checks: checks, timeout: timeout}
}

// Check runs every check once and publishes SERVING only when all pass.
func (f *HealthGRPCFacade) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range f.checks {
		checkCtx, cancel := context.WithTimeout(ctx, f.timeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			logger.Log.Errorw("health check failed", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	f.server.SetServingStatus("", status)
	f.server.SetServingStatus(LedgerServiceName, status)
	return status
}

// Run checks immediately and then every interval until ctx is done, at which
// point the server is switched to NOT_SERVING for good.
func (f *HealthGRPCFacade) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	f.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			f.server.Shutdown()
			return
		case <-ticker.C:
			f.Check(ctx)
		}
	}
}
