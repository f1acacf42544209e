package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer_Follows_Chat_Status(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a running health server
	s := NewHealthServer(slog.New(slog.DiscardHandler), "127.0.0.1:0")
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case <-s.Ready():
	case <-time.After(3 * time.Second):
		req.FailNow("health server not ready")
	}

	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		callCtx, callCancel := context.WithTimeout(ctx, 3*time.Second)
		defer callCancel()
		resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: ChatServiceName})
		req.NoError(err)
		return resp.GetStatus()
	}

	// Then it starts as not serving
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())

	// When the chat listener comes up
	s.SetServing(true)
	req.Equal(healthpb.HealthCheckResponse_SERVING, check())

	// And goes down again
	s.SetServing(false)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())

	cancel()
	select {
	case err = <-done:
		req.NoError(err)
	case <-time.After(3 * time.Second):
		req.FailNow("health server did not stop")
	}
}

func TestHealthServer_Can_Run_Again(t *testing.T) {
	req := require.New(t)
	s := NewHealthServer(slog.New(slog.DiscardHandler), "127.0.0.1:0")

	run := func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()
		select {
		case <-s.Ready():
		case <-time.After(3 * time.Second):
			req.FailNow("health server not ready")
		}
		req.Eventually(func() bool { return s.Addr() != nil }, 3*time.Second, 10*time.Millisecond)
		cancel()
		select {
		case err := <-done:
			req.NoError(err)
		case <-time.After(3 * time.Second):
			req.FailNow("health server did not stop")
		}
	}

	// Given a health server that already ran once
	run()

	// When the supervisor starts it again, Then it starts and stops cleanly
	run()
}
