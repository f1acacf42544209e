package workers

import (
	"bytes"
	"chat-hub/observability"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHealthMonitoringWorker_Reports_Counters(t *testing.T) {
	req := require.New(t)
	out := &syncBuffer{}
	log := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	monitor := observability.NewMonitor(log)
	monitor.SessionOpened()
	monitor.IncrMessagesPosted()
	worker := NewHealthMonitoringWorker(log, monitor, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// When the worker runs for a few ticks
	req.NoError(worker.Run(ctx))

	// Then the counters were logged
	logged := out.String()
	req.True(strings.Contains(logged, "Server health"))
	req.True(strings.Contains(logged, "active_sessions=1"))
	req.True(strings.Contains(logged, "messages_posted=1"))
}
