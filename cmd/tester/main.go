package main

import (
	"chat-hub/auth"
	"chat-hub/client"
	"chat-hub/domain"
	"chat-hub/protocol"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config drives the load run. Variables are prefixed with TESTER_.
type Config struct {
	Address       string        `envconfig:"ADDRESS" default:"127.0.0.1:5555"`
	Clients       int           `envconfig:"CLIENTS" default:"10"`
	Messages      int           `envconfig:"MESSAGES" default:"20"`
	Interval      time.Duration `envconfig:"INTERVAL" default:"10ms"`
	Password      string        `envconfig:"PASSWORD" default:"tester-password"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"10s"`
	EncryptionKey string        `envconfig:"ENCRYPTION_KEY"`
	Colours       bool          `envconfig:"COLOURS" default:"true"`
}

// stats is what one simulated user observed.
type stats struct {
	username  string
	sent      int
	received  int
	own       int
	corrupted int
	latencies []time.Duration
	sendErr   error
	recvErr   error
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

// run logs Clients users in, makes each post Messages messages to the default
// room and checks that every user saw every message.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("TESTER", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if config.Clients < 1 || config.Messages < 0 {
		return exitConfig, fmt.Errorf("config error: need at least one client")
	}
	color.Enable = config.Colours

	var decrypt func(string) (string, error)
	if config.EncryptionKey != "" {
		cipher, err := auth.NewCipher(config.EncryptionKey)
		if err != nil {
			return exitConfig, fmt.Errorf("config error: %w", err)
		}
		decrypt = cipher.Decrypt
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := uuid.NewString()[:8]
	clients := make([]*client.Client, config.Clients)
	results := make([]*stats, config.Clients)
	for i := range clients {
		username := fmt.Sprintf("load-%s-%d", batch, i)
		c, err := connect(ctx, config, username)
		if err != nil {
			closeAll(clients)
			return exitRuntime, fmt.Errorf("%s: %w", username, err)
		}
		clients[i] = c
		results[i] = &stats{username: username}
	}
	defer closeAll(clients)
	color.Cyan.Printf("%d clients logged in on %s\n", len(clients), config.Address)

	expected := config.Clients * config.Messages
	start := time.Now()
	var wg sync.WaitGroup
	for i, c := range clients {
		pending := make(chan time.Time, config.Messages)
		wg.Add(2)
		go func() {
			defer wg.Done()
			receive(c, results[i], expected, pending, decrypt)
		}()
		go func() {
			defer wg.Done()
			send(ctx, c, results[i], config, pending)
		}()
	}
	wg.Wait()
	report(results, expected, time.Since(start))

	for _, s := range results {
		if s.sendErr != nil || s.recvErr != nil || s.received != expected || s.corrupted > 0 {
			return exitRuntime, stderrors.New("some messages were lost or corrupted")
		}
	}
	return exitOK, nil
}

func connect(ctx context.Context, config Config, username string) (*client.Client, error) {
	c, err := client.Dial(ctx, config.Address, config.Timeout)
	if err != nil {
		return nil, err
	}
	err = c.Register(username, config.Password)
	var serverErr client.ServerError
	if err != nil && !(stderrors.As(err, &serverErr) && serverErr.Message == "Username already exists") {
		_ = c.Close()
		return nil, err
	}
	if _, err = c.Login(username, config.Password); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func send(ctx context.Context, c *client.Client, s *stats, config Config, pending chan<- time.Time) {
	for j := 0; j < config.Messages; j++ {
		if ctx.Err() != nil {
			return
		}
		pending <- time.Now()
		if err := c.Post(domain.DefaultRoomID, fmt.Sprintf("%s #%d", s.username, j)); err != nil {
			s.sendErr = err
			return
		}
		s.sent++
		if config.Interval > 0 {
			time.Sleep(config.Interval)
		}
	}
}

// receive reads until every expected broadcast arrived or the read times out.
// Own messages come back in order, which gives the round-trip latency.
func receive(c *client.Client, s *stats, expected int, pending <-chan time.Time, decrypt func(string) (string, error)) {
	for s.received < expected {
		env, err := c.Next()
		if err != nil {
			s.recvErr = err
			return
		}
		if env.Type != protocol.TypeMessage {
			continue
		}
		var msg protocol.MessageBroadcast
		if err = env.Decode(&msg); err != nil {
			s.corrupted++
			continue
		}
		s.received++
		if decrypt != nil {
			plaintext, err := decrypt(msg.Content)
			if err != nil || !strings.HasPrefix(plaintext, msg.Sender+" #") {
				s.corrupted++
			}
		}
		if msg.Sender == s.username {
			s.own++
			select {
			case sentAt := <-pending:
				s.latencies = append(s.latencies, time.Since(sentAt))
			default:
			}
		}
	}
}

func report(results []*stats, expected int, elapsed time.Duration) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Sent", "Received", "Avg latency", "P95 latency", "Corrupted", "Error"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	total, lost := 0, 0
	for _, s := range results {
		avg, p95 := summarize(s.latencies)
		errText := ""
		if err := stderrors.Join(s.sendErr, s.recvErr); err != nil {
			errText = err.Error()
		}
		table.Append([]string{
			s.username,
			fmt.Sprintf("%d", s.sent),
			fmt.Sprintf("%d/%d", s.received, expected),
			avg.Round(time.Microsecond).String(),
			p95.Round(time.Microsecond).String(),
			fmt.Sprintf("%d", s.corrupted),
			errText,
		})
		total += s.received
		lost += expected - s.received
	}
	table.SetFooter([]string{"", "", fmt.Sprintf("%d", total), "", "", "", elapsed.Round(time.Millisecond).String()})
	table.Render()

	if lost == 0 {
		color.Green.Printf("All %d deliveries received (%.0f frames/s)\n", total, float64(total)/elapsed.Seconds())
		return
	}
	color.Red.Printf("%d deliveries missing\n", lost)
}

func summarize(latencies []time.Duration) (avg, p95 time.Duration) {
	if len(latencies) == 0 {
		return 0, 0
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	return sum / time.Duration(len(sorted)), sorted[(len(sorted)*95)/100]
}

func closeAll(clients []*client.Client) {
	for _, c := range clients {
		if c != nil {
			_ = c.Close()
		}
	}
}
