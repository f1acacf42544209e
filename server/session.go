package server

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var _ contract.Sink = (*Session)(nil)

// Session is the outbound half of one TCP connection.
// Frames are queued by Send and written by a single writePump goroutine,
// so broadcasts never block on a slow peer.
type Session struct {
	id           string
	conn         net.Conn
	log          *slog.Logger
	writeTimeout time.Duration
	userID       atomic.Int64

	mu       sync.Mutex
	closed   bool
	outbound chan []byte
	done     chan struct{}
	pumpDone chan struct{}

	closeOnce    sync.Once
	disconnected atomic.Bool
}

func NewSession(conn net.Conn, log *slog.Logger, bufferSize int, writeTimeout time.Duration) *Session {
	id := uuid.NewString()
	if bufferSize < 1 {
		bufferSize = 1
	}
	s := &Session{
		id:           id,
		conn:         conn,
		log:          log.With("session_id", id),
		writeTimeout: writeTimeout,
		outbound:     make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		pumpDone:     make(chan struct{}),
	}
	go s.writePump()
	return s
}

func (s *Session) ID() string { return s.id }

// UserID is zero until the connection logs in.
func (s *Session) UserID() domain.UserID { return domain.UserID(s.userID.Load()) }

func (s *Session) setUser(userID domain.UserID) { s.userID.Store(int64(userID)) }

// Send queues frame without blocking.
// A full queue means the peer cannot keep up and is reported as a send failure.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	select {
	case s.outbound <- frame:
		return nil
	default:
		return errors.ErrSendFailure
	}
}

// Close stops accepting frames. Frames already queued are flushed
// before the socket is closed. Safe to call several times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
}

// Wait blocks until the socket is closed.
func (s *Session) Wait() {
	<-s.pumpDone
}

// markDisconnected returns true only for the first caller.
func (s *Session) markDisconnected() bool {
	return s.disconnected.CompareAndSwap(false, true)
}

func (s *Session) writePump() {
	defer close(s.pumpDone)
	defer func() { _ = s.conn.Close() }()

	for {
		select {
		case frame := <-s.outbound:
			if err := s.write(frame); err != nil {
				s.log.Debug("Write failed, closing session", "error", err)
				s.fail()
				return
			}
		case <-s.done:
			s.drain()
			return
		}
	}
}

// drain flushes what was queued before Close.
func (s *Session) drain() {
	for {
		select {
		case frame := <-s.outbound:
			if err := s.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(frame []byte) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.conn.Write(frame)
	return err
}

// fail marks the session closed after a write error so later Sends are refused.
func (s *Session) fail() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
