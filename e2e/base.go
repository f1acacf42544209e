package e2e

import (
	"chat-hub/client"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const stepTimeout = 10 * time.Second

type BaseChatSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ChatAddr == "" {
		s.T().Skip("CHAT_ADDR not set, no server to test against")
	}
}

func (s *BaseChatSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// ChatConn opens a wire protocol connection, closed at the end of the test.
func (s *BaseChatSuite) ChatConn(t *testing.T, name string) *client.Client {
	s.header(t, name)
	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()

	c, err := client.Dial(ctx, s.Config.ChatAddr, stepTimeout)
	s.Require().NoError(err, "Failed to connect to chat server at "+s.Config.ChatAddr)
	t.Cleanup(func() { _ = c.Close() })
	if s.Config.DebugJSON {
		c.Skipped = func(env client.Envelope) {
			t.Logf("SKIPPED %s: %s", env.Type, strings.TrimSpace(string(env.Raw)))
		}
	}
	return c
}

// WithHealth provides a gRPC health client with call logging.
func (s *BaseChatSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("HEALTH_ADDR not set")
	}
	t := s.T()
	s.header(t, name)

	conn, err := grpc.NewClient(s.Config.HealthAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)
			t.Logf("GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to health server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
