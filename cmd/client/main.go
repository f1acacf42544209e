package main

import (
	"chat-hub/auth"
	"chat-hub/client"
	"chat-hub/domain"
	"chat-hub/protocol"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:5555"`
	Username      string `env:"CHAT_USERNAME,required=true"`
	Password      string `env:"CHAT_PASSWORD,required=true"`
	RoomID        int64  `env:"CHAT_ROOM_ID,default=1"`
	HistoryLimit  int    `env:"CHAT_HISTORY,default=20"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, prints the recent history of a room and then follows it
// until Ctrl+C or until the server closes the connection.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	reveal := func(content string) string { return content }
	if config.EncryptionKey != "" {
		cipher, err := auth.NewCipher(config.EncryptionKey)
		if err != nil {
			return exitConfig, fmt.Errorf("config error: %w", err)
		}
		reveal = func(content string) string {
			plaintext, err := cipher.Decrypt(content)
			if err != nil {
				return "<unreadable>"
			}
			return plaintext
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, config.ServerAddress, 0)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()
	// Unblocks Next on Ctrl+C
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	user, err := c.Login(config.Username, config.Password)
	if err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	roomID := domain.RoomID(config.RoomID)
	if roomID != domain.DefaultRoomID {
		if err = c.Join(roomID); err != nil {
			return exitRuntime, fmt.Errorf("cannot join room %d: %w", roomID, err)
		}
	}
	log.Info("Connected, listening (Ctrl+C to quit)", "address", config.ServerAddress, "user", user.Username, "room_id", roomID)

	history, err := c.History(roomID, config.HistoryLimit)
	if err != nil {
		return exitRuntime, fmt.Errorf("cannot read history: %w", err)
	}
	for _, m := range history {
		printLine(m.Timestamp, m.SenderUsername, reveal(m.Content))
	}

	for {
		env, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
		switch env.Type {
		case protocol.TypeMessage:
			var msg protocol.MessageBroadcast
			if err = env.Decode(&msg); err != nil || domain.RoomID(msg.RoomID) != roomID {
				continue
			}
			printLine(time.Now(), msg.Sender, reveal(msg.Content))
		case protocol.TypeUserJoined:
			var joined protocol.UserJoinedBroadcast
			if err = env.Decode(&joined); err == nil {
				log.Info("User joined", "username", joined.Username, "room_id", joined.RoomID)
			}
		case protocol.TypeError:
			var e protocol.ErrorResponse
			if err = env.Decode(&e); err == nil {
				log.Warn("Server error", "message", e.Message)
			}
		default:
			log.Debug("Frame ignored", slog.String("type", string(env.Type)))
		}
	}
}

func printLine(at time.Time, sender, content string) {
	fmt.Printf("[%s] %s: %s\n", at.Local().Format(time.TimeOnly), sender, content)
}
