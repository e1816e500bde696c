package obs

import (
	"context"
	"net"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func GRPCServerOpts(metrics *grpcprometheus.ServerMetrics) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(metrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(metrics.StreamServerInterceptor()),
	}
}

// HealthServer serves grpc.health.v1 and reflects the result of checks for the overall service ("").
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	checks HealthChecks
	log    *zap.Logger
}

func NewHealthServer(checks HealthChecks, log *zap.Logger) *HealthServer {
	metrics := grpcprometheus.NewServerMetrics()
	srv := grpc.NewServer(GRPCServerOpts(metrics)...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	metrics.InitializeMetrics(srv)

	return &HealthServer{srv: srv, health: hs, checks: checks, log: log.With(zap.String("component", "grpc.health"))}
}

func (h *HealthServer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go h.watch(ctx, 5*time.Second)
	h.log.Info("grpc listening", zap.String("addr", addr))
	return h.srv.Serve(ln)
}

func (h *HealthServer) watch(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		h.refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (h *HealthServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	cctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for name, check := range h.checks {
		if err := check(cctx); err != nil {
			h.log.Warn("health check failed", zap.String("check", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
}

func (h *HealthServer) GracefulStop() {
	h.health.Shutdown()
	h.srv.GracefulStop()
}
