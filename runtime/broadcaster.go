package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/observability"
	"context"
	"log/slog"
)

// Broadcaster delivers an encoded frame to every live member of a room.
//
// Delivery is best-effort and at-most-once: a recipient whose queue refuses the
// frame is handed to the failure hook after the loop, the others still receive it.
type Broadcaster struct {
	log       *slog.Logger
	registry  contract.IRegistry
	monitor   *observability.Monitor
	onFailure func(contract.Sink)
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, monitor *observability.Monitor, onFailure func(contract.Sink)) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, monitor: monitor, onFailure: onFailure}
}

// Broadcast returns the number of sessions that accepted the frame.
func (b *Broadcaster) Broadcast(ctx context.Context, roomID domain.RoomID, frame []byte) int {
	recipients := b.registry.SinksForRoom(roomID)
	var failed []contract.Sink
	delivered := 0
	for _, sink := range recipients {
		if ctx.Err() != nil {
			break
		}
		if err := sink.Send(frame); err != nil {
			b.log.Debug("Broadcast delivery failed",
				"room_id", roomID, "session_id", sink.ID(), "user_id", sink.UserID(), "error", err)
			failed = append(failed, sink)
			continue
		}
		delivered++
	}
	b.monitor.FramesBroadcast(delivered)
	b.monitor.SendFailures(len(failed))
	if b.onFailure != nil {
		for _, sink := range failed {
			b.onFailure(sink)
		}
	}
	return delivered
}
