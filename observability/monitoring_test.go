package observability

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Snapshot_Counts(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor(logs.GetLoggerFromLevel(slog.LevelDebug))
	var wg sync.WaitGroup

	// Given concurrent activity
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.IncrAccepted()
			monitor.SessionOpened()
			monitor.IncrMessagesPosted()
			monitor.FramesBroadcast(3)
		}()
	}
	wg.Wait()
	monitor.SessionClosed()
	monitor.IncrRejected()
	monitor.SendFailures(2)
	monitor.SendFailures(0)
	monitor.DroppedFrames(1)

	// When a snapshot is taken
	stats := monitor.Snapshot()

	// Then every counter is reported
	req.Equal(uint64(10), stats.Accepted)
	req.Equal(uint64(1), stats.Rejected)
	req.Equal(int64(9), stats.ActiveSessions)
	req.Equal(uint64(10), stats.MessagesPosted)
	req.Equal(uint64(30), stats.FramesBroadcast)
	req.Equal(uint64(2), stats.SendFailures)
	req.Equal(uint64(1), stats.DroppedFrames)
	req.Positive(stats.Goroutines)

	// And the rate window restarts
	req.Zero(monitor.Snapshot().MessageRate)
}
