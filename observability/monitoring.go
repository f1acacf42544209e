package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats is a point-in-time view of the chat server counters.
type MonitoringStats struct {
	// --- CONNECTION METRICS ---
	Accepted       uint64 `json:"accepted"`
	Rejected       uint64 `json:"rejected"`
	ActiveSessions int64  `json:"active_sessions"`

	// --- TRAFFIC METRICS ---
	MessagesPosted  uint64  `json:"messages_posted"`
	FramesBroadcast uint64  `json:"frames_broadcast"`
	SendFailures    uint64  `json:"send_failures"`
	DroppedFrames   uint64  `json:"dropped_frames"`
	MessageRate     float64 `json:"message_rate"` // messages/s since previous snapshot

	// --- SYSTEM METRICS ---
	AllocMemMb uint64 `json:"alloc_mem_mb"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// Monitor gathers counters from the hot path with atomics only.
// Snapshot is the single place that takes a lock.
type Monitor struct {
	log *slog.Logger
	mu  sync.Mutex

	accepted        atomic.Uint64
	rejected        atomic.Uint64
	activeSessions  atomic.Int64
	messagesPosted  atomic.Uint64
	framesBroadcast atomic.Uint64
	sendFailures    atomic.Uint64
	droppedFrames   atomic.Uint64

	lastCheck    time.Time
	lastMessages uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log, lastCheck: time.Now()}
}

func (m *Monitor) IncrAccepted() { m.accepted.Add(1) }

func (m *Monitor) IncrRejected() { m.rejected.Add(1) }

func (m *Monitor) SessionOpened() { m.activeSessions.Add(1) }

func (m *Monitor) SessionClosed() { m.activeSessions.Add(-1) }

func (m *Monitor) IncrMessagesPosted() { m.messagesPosted.Add(1) }

func (m *Monitor) FramesBroadcast(n int) {
	if n > 0 {
		m.framesBroadcast.Add(uint64(n))
	}
}

func (m *Monitor) SendFailures(n int) {
	if n > 0 {
		m.sendFailures.Add(uint64(n))
	}
}

func (m *Monitor) DroppedFrames(n int) {
	if n > 0 {
		m.droppedFrames.Add(uint64(n))
	}
}

// Snapshot loads every counter and computes the message rate since the previous call.
func (m *Monitor) Snapshot() MonitoringStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	posted := m.messagesPosted.Load()
	stats := MonitoringStats{
		Accepted:        m.accepted.Load(),
		Rejected:        m.rejected.Load(),
		ActiveSessions:  m.activeSessions.Load(),
		MessagesPosted:  posted,
		FramesBroadcast: m.framesBroadcast.Load(),
		SendFailures:    m.sendFailures.Load(),
		DroppedFrames:   m.droppedFrames.Load(),
		Goroutines:      runtime.NumGoroutine(),
	}
	if duration := now.Sub(m.lastCheck).Seconds(); duration > 0 {
		stats.MessageRate = float64(posted-m.lastMessages) / duration
	}
	m.lastCheck = now
	m.lastMessages = posted

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.AllocMemMb = ms.Alloc / 1024 / 1024
	stats.NumGC = ms.NumGC

	m.log.Debug("Stats updated",
		"active_sessions", stats.ActiveSessions,
		"messages_posted", stats.MessagesPosted,
		"mem_mb", stats.AllocMemMb,
	)
	return stats
}
