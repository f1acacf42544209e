package server

import (
	"chat-hub/contract"
	"chat-hub/observability"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MonitoringServer publishes the live counters as JSON over HTTP.
type MonitoringServer struct {
	log             *slog.Logger
	address         string
	monitor         *observability.Monitor
	shutdownTimeout time.Duration
}

var _ contract.Worker = (*MonitoringServer)(nil)

func NewMonitoringServer(log *slog.Logger, address string, monitor *observability.Monitor, shutdownTimeout time.Duration) *MonitoringServer {
	return &MonitoringServer{log: log, address: address, monitor: monitor, shutdownTimeout: shutdownTimeout}
}

func (s *MonitoringServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/monitoring", s.handleMonitoring)
	return r
}

func (s *MonitoringServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Monitoring available", "url", fmt.Sprintf("http://%s/api/monitoring", s.address))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("monitoring server error: %w", err)
	}
}

func (s *MonitoringServer) handleMonitoring(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.monitor.Snapshot()); err != nil {
		s.log.Debug("Cannot write monitoring snapshot", "error", err)
	}
}
