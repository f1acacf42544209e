package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/observability"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Delivers_To_All_Live_Members(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	alice := newFakeSink(1)
	bob := newFakeSink(2)
	outsider := newFakeSink(3)
	for _, s := range []*fakeSink{alice, bob, outsider} {
		registry.Bind(s.UserID(), s)
	}
	registry.Join(alice, domain.DefaultRoomID)
	registry.Join(bob, domain.DefaultRoomID)
	registry.Join(outsider, 2)
	broadcaster := NewBroadcaster(log, registry, observability.NewMonitor(log), nil)
	frame := []byte(`{"type":"message"}` + "\n")

	// When a frame is broadcast to the default room
	delivered := broadcaster.Broadcast(context.Background(), domain.DefaultRoomID, frame)

	// Then every member of that room, and only them, receives it once
	req.Equal(2, delivered)
	req.Equal([][]byte{frame}, alice.received())
	req.Equal([][]byte{frame}, bob.received())
	req.Empty(outsider.received())
}

func TestBroadcaster_Isolates_Failing_Recipient(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	alice := newFakeSink(1)
	broken := newFakeSink(2)
	broken.fail = true
	registry.Bind(1, alice)
	registry.Bind(2, broken)
	registry.Join(alice, domain.DefaultRoomID)
	registry.Join(broken, domain.DefaultRoomID)

	var dropped []contract.Sink
	monitor := observability.NewMonitor(log)
	broadcaster := NewBroadcaster(log, registry, monitor, func(s contract.Sink) {
		// The hook runs after the loop, so taking the registry lock here is safe
		registry.Unbind(s.UserID(), s)
		dropped = append(dropped, s)
	})

	// When one recipient refuses the frame
	delivered := broadcaster.Broadcast(context.Background(), domain.DefaultRoomID, []byte("x\n"))

	// Then the other still gets it and the broken one is handed to the hook
	req.Equal(1, delivered)
	req.Len(alice.received(), 1)
	req.Equal([]contract.Sink{broken}, dropped)
	req.Equal([]contract.Sink{alice}, registry.SinksForRoom(domain.DefaultRoomID))
	req.Equal(uint64(1), monitor.Snapshot().SendFailures)
}

func TestBroadcaster_Empty_Room(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	broadcaster := NewBroadcaster(log, NewRegistry(), observability.NewMonitor(log), nil)
	req.Zero(broadcaster.Broadcast(context.Background(), 42, []byte("x\n")))
}
