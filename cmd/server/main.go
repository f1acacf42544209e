package main

import (
	"chat-hub/auth"
	grpcserver "chat-hub/infrastructure/grpc/server"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/observability"
	"chat-hub/repositories"
	"chat-hub/runtime/workers"
	"chat-hub/server"
	"chat-hub/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal error.
// Deferred cleanups (database included) run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be set.
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return exitConfig, fmt.Errorf("cannot read .env: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()
	debug := logger.Enabled(ctx, slog.LevelDebug)

	// 2. Protection & Moderation
	cipher, err := auth.NewCipher(config.EncryptionKey)
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	protector := auth.NewProtector(cipher, auth.DefaultHashParams)

	words := config.Words()
	if config.CensoredDir != "" {
		list, err := moderation.LoadWordLists(os.DirFS(config.CensoredDir))
		if err != nil {
			return exitConfig, fmt.Errorf("censored words: %w", err)
		}
		logger.Info("Censored dictionaries loaded", "languages", list.Languages, "count", len(list.Words))
		words = lo.Uniq(append(words, list.Words...))
	}
	moderator, err := moderation.NewModerator(words, charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}

	// 3. Database (BadgerDB)
	db, err := repositories.OpenBadger(config.BadgerFilepath, logger, debug)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if debug && config.BadgerFilepath != repositories.InMemory {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, repositories.InspectMapper)
	}

	// 4. Services
	userRepository := repositories.NewUserRepository(db)
	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)
	authService := services.NewAuthService(logger, userRepository, protector)
	chatService := services.NewChatService(logger, userRepository, roomRepository, messageRepository, protector, moderator)
	monitor := observability.NewMonitor(logger)

	chatServer := server.NewChatServer(logger, server.Settings{
		Address:         config.Address(),
		MaxConnections:  config.MaxConnections,
		MaxFrameSize:    config.MaxFrameSize,
		SendBufferSize:  config.SendBufferSize,
		WriteTimeout:    config.WriteTimeout,
		ReadTimeout:     config.ReadTimeout,
		MaxHistoryLimit: config.MaxHistoryLimit,
		ShutdownTimeout: config.ShutdownTimeout,
	}, authService, chatService, monitor)

	// 5. Supervised side workers
	supervisor := workers.NewSupervisor(logger).
		Add(workers.NewHealthMonitoringWorker(logger, monitor, config.MetricInterval))
	if config.HealthPort > 0 {
		healthServer := grpcserver.NewHealthServer(logger, config.HealthAddress())
		chatServer.OnStatus(healthServer.SetServing)
		supervisor.Add(healthServer)
	}
	if config.MonitoringPort > 0 {
		supervisor.Add(grpcserver.NewMonitoringServer(logger, config.MonitoringAddress(), monitor, config.ShutdownTimeout))
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// The chat listener is not restarted: failing to bind is fatal.
	errChan := make(chan error, 1)
	go func() {
		errChan <- chatServer.Run(ctx)
	}()

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		runErr = <-errChan
	case runErr = <-errChan:
	}

	// 8. Final Cleanup
	logger.Info("Shutting down gracefully...")
	stop()
	<-supervisorDone
	if runErr != nil {
		return exitRuntime, runErr
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}
