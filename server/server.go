package server

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/protocol"
	"chat-hub/runtime"
	"chat-hub/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	rejectWriteTimeout = time.Second
	evictedMessage     = "Logged in from another connection"
	presenceStripes    = 64
)

// Settings are the tunables of the chat listener.
type Settings struct {
	Address         string
	MaxConnections  int64
	MaxFrameSize    int
	SendBufferSize  int
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	MaxHistoryLimit int
	ShutdownTimeout time.Duration
}

// ChatServer owns the listening socket and the live state shared by all connections.
// It is a contract.Worker: Run blocks until the context is canceled.
type ChatServer struct {
	log         *slog.Logger
	settings    Settings
	registry    *runtime.Registry
	broadcaster *runtime.Broadcaster
	authService services.IAuthService
	chatService services.IChatService
	monitor     *observability.Monitor
	admission   *semaphore.Weighted

	// presence orders bind/unbind of one user with its online flag update,
	// so a late disconnect never marks a freshly logged-in user offline.
	// Users on different stripes never wait on each other.
	presence [presenceStripes]sync.Mutex

	mu          sync.Mutex
	listener    net.Listener
	connections map[*Session]struct{}
	statusHooks []func(serving bool)
	ready       chan struct{}
	readyOnce   sync.Once
	wg          sync.WaitGroup
}

var _ contract.Worker = (*ChatServer)(nil)

func NewChatServer(log *slog.Logger, settings Settings, authService services.IAuthService,
	chatService services.IChatService, monitor *observability.Monitor) *ChatServer {
	s := &ChatServer{
		log:         log,
		settings:    settings,
		registry:    runtime.NewRegistry(),
		authService: authService,
		chatService: chatService,
		monitor:     monitor,
		admission:   semaphore.NewWeighted(settings.MaxConnections),
		connections: make(map[*Session]struct{}),
		ready:       make(chan struct{}),
	}
	s.broadcaster = runtime.NewBroadcaster(log, s.registry, monitor, func(sink contract.Sink) {
		if session, ok := sink.(*Session); ok {
			s.Disconnect(session)
		}
	})
	return s
}

// OnStatus registers a callback told when the listener starts or stops serving.
func (s *ChatServer) OnStatus(hook func(serving bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusHooks = append(s.statusHooks, hook)
}

// Ready is closed once the listener accepts connections.
func (s *ChatServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, useful when listening on port 0.
func (s *ChatServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *ChatServer) Registry() *runtime.Registry {
	return s.registry
}

func (s *ChatServer) Run(ctx context.Context) error {
	if _, err := s.chatService.EnsureDefaultRoom(ctx); err != nil {
		return fmt.Errorf("default room: %w", err)
	}

	listener, err := net.Listen("tcp", s.settings.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.settings.Address, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = listener.Close()
		case <-stop:
		}
	}()

	s.log.Info("Chat server listening", "address", listener.Addr().String())
	s.notify(true)
	s.readyOnce.Do(func() { close(s.ready) })

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.shutdown()
				return nil
			}
			var netErr net.Error
			if stderrors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			_ = listener.Close()
			s.shutdown()
			return fmt.Errorf("accept failed: %w", err)
		}

		if !s.admission.TryAcquire(1) {
			s.reject(conn)
			continue
		}
		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *ChatServer) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.admission.Release(1)

	session := NewSession(conn, s.log, s.settings.SendBufferSize, s.settings.WriteTimeout)
	s.track(session)
	defer s.untrack(session)
	s.monitor.IncrAccepted()
	s.monitor.SessionOpened()
	s.log.Debug("Connection accepted", "session_id", session.ID(), "remote", conn.RemoteAddr().String())

	// Cleanup runs after the recover below, panics included
	defer s.Disconnect(session)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Handler panic, dropping connection", "session_id", session.ID(), "panic", r)
		}
	}()

	newHandler(s, session, conn).serve(ctx)
}

// reject tells the peer the server is full and closes the socket.
func (s *ChatServer) reject(conn net.Conn) {
	s.monitor.IncrRejected()
	s.log.Warn("Connection rejected, server is full", "remote", conn.RemoteAddr().String())
	if frame, err := protocol.Encode(protocol.NewError(errors.ToWireMessage(errors.ErrServerFull))); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
		_, _ = conn.Write(frame)
	}
	_ = conn.Close()
}

// Disconnect removes session from the live state and closes it.
// The user is marked offline only when session was still its bound session.
// Calling it more than once is a no-op.
func (s *ChatServer) Disconnect(session *Session) {
	if !session.markDisconnected() {
		return
	}
	if userID := session.UserID(); userID != 0 {
		lock := s.presenceLock(userID)
		lock.Lock()
		if s.registry.Unbind(userID, session) {
			if err := s.chatService.SetOnline(context.Background(), userID, false); err != nil {
				s.log.Error("Cannot mark user offline", "user_id", userID, "error", err)
			}
			s.log.Info("User disconnected", "user_id", userID, "session_id", session.ID())
		}
		lock.Unlock()
	}
	session.Close()
	s.monitor.SessionClosed()
}

// bind makes session the live connection of user and marks the user online.
// A previously bound session is evicted: it receives a notice then is closed.
func (s *ChatServer) bind(ctx context.Context, session *Session, user domain.User) error {
	lock := s.presenceLock(user.ID)
	lock.Lock()
	session.setUser(user.ID)
	previous := s.registry.Bind(user.ID, session)
	err := s.chatService.SetOnline(ctx, user.ID, true)
	lock.Unlock()

	if previous != nil {
		s.log.Info("Session evicted by a new login", "user_id", user.ID, "session_id", previous.ID())
		if frame, encodeErr := protocol.Encode(protocol.NewError(evictedMessage)); encodeErr == nil {
			_ = previous.Send(frame)
		}
		previous.Close()
	}
	return err
}

func (s *ChatServer) presenceLock(userID domain.UserID) *sync.Mutex {
	return &s.presence[uint64(userID)%presenceStripes]
}

func (s *ChatServer) broadcast(ctx context.Context, roomID domain.RoomID, v any) int {
	frame, err := protocol.Encode(v)
	if err != nil {
		s.log.Error("Cannot encode broadcast", "room_id", roomID, "error", err)
		return 0
	}
	return s.broadcaster.Broadcast(ctx, roomID, frame)
}

func (s *ChatServer) track(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[session] = struct{}{}
}

func (s *ChatServer) untrack(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, session)
}

func (s *ChatServer) notify(serving bool) {
	s.mu.Lock()
	hooks := append([]func(bool){}, s.statusHooks...)
	s.mu.Unlock()
	for _, hook := range hooks {
		hook(serving)
	}
}

// shutdown closes every open connection and waits for handlers,
// at most ShutdownTimeout.
func (s *ChatServer) shutdown() {
	s.notify(false)
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.connections))
	for session := range s.connections {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	s.log.Info("Closing connections", "count", len(sessions))
	for _, session := range sessions {
		session.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	timeout := s.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-done:
		s.log.Info("Chat server stopped")
	case <-time.After(timeout):
		s.log.Warn("Shutdown timeout reached, some handlers are still running")
	}
}
