package server

import (
	"chat-hub/contract"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	sdkgrpc "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ChatServiceName is the service name probes ask about.
// The empty name reports the same status.
const ChatServiceName = "chathub.Chat"

// HealthServer exposes the standard gRPC health protocol.
// It answers NOT_SERVING until the chat listener reports it accepts connections.
type HealthServer struct {
	log     *slog.Logger
	address string
	health  *health.Server

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

var _ contract.Worker = (*HealthServer)(nil)

func NewHealthServer(log *slog.Logger, address string) *HealthServer {
	h := health.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ChatServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		log:     log,
		address: address,
		health:  h,
		ready:   make(chan struct{}),
	}
}

// SetServing is meant to be plugged into ChatServer.OnStatus.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ChatServiceName, status)
	s.log.Debug("Health status changed", "status", status.String())
}

func (s *HealthServer) Ready() <-chan struct{} {
	return s.ready
}

func (s *HealthServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	g := grpc.NewServer(grpc.ChainUnaryInterceptor(sdkgrpc.UnaryLoggingInterceptor(s.log)))
	healthpb.RegisterHealthServer(g, s.health)

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	// Run is restarted by the supervisor after a failure
	s.readyOnce.Do(func() { close(s.ready) })

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting health server", "address", listener.Addr().String())
		if err := g.Serve(listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Open Watch streams end with NOT_SERVING
		s.health.Shutdown()
		g.GracefulStop()
		s.log.Info("Health server stopped")
		return nil
	case err = <-errChan:
		g.Stop()
		return fmt.Errorf("health server error: %w", err)
	}
}
