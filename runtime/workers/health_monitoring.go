package workers

import (
	"chat-hub/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically logs the server process usage
// alongside the chat counters gathered by the monitor.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitor        *observability.Monitor
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(log *slog.Logger, monitor *observability.Monitor, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		monitor:        monitor,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *HealthMonitoringWorker) report(p *process.Process) {
	stats := w.monitor.Snapshot()
	attrs := []any{
		"active_sessions", stats.ActiveSessions,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"messages_posted", stats.MessagesPosted,
		"message_rate", stats.MessageRate,
		"frames_broadcast", stats.FramesBroadcast,
		"send_failures", stats.SendFailures,
		"dropped_frames", stats.DroppedFrames,
		"goroutines", stats.Goroutines,
		"mem_mb", stats.AllocMemMb,
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "error", err)
	} else {
		attrs = append(attrs, "cpu", cpu)
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "error", err)
	} else {
		attrs = append(attrs, "ram", ram)
	}
	w.log.Info("Server health", attrs...)
}
