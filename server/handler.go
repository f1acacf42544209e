package server

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/protocol"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"
)

type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateClosed
)

// Handler drives one connection through Unauthenticated -> Authenticated -> Closed.
// Frames are processed one at a time, which keeps per-sender ordering.
type Handler struct {
	log     *slog.Logger
	server  *ChatServer
	session *Session
	conn    net.Conn
	state   state
	user    domain.User
}

func newHandler(server *ChatServer, session *Session, conn net.Conn) *Handler {
	return &Handler{
		log:     server.log.With("session_id", session.ID()),
		server:  server,
		session: session,
		conn:    conn,
		state:   stateUnauthenticated,
	}
}

func (h *Handler) serve(ctx context.Context) {
	decoder := protocol.NewDecoder(h.conn, h.server.settings.MaxFrameSize)
	dropped := 0
	defer func() { h.state = stateClosed }()

	for {
		if h.server.settings.ReadTimeout > 0 {
			_ = h.conn.SetReadDeadline(time.Now().Add(h.server.settings.ReadTimeout))
		}
		frame, err := decoder.Next()
		if n := decoder.Dropped(); n > dropped {
			h.server.monitor.DroppedFrames(n - dropped)
			dropped = n
		}
		if err != nil {
			h.logReadError(ctx, err)
			return
		}

		req, err := protocol.ParseRequest(frame)
		if err != nil {
			h.server.monitor.DroppedFrames(1)
			continue
		}
		if err = h.dispatch(ctx, req); err != nil {
			h.log.Debug("Reply not delivered, closing connection", "error", err)
			return
		}
	}
}

func (h *Handler) logReadError(ctx context.Context, err error) {
	switch {
	case stderrors.Is(err, io.EOF):
		h.log.Debug("Peer closed the connection")
	case stderrors.Is(err, errors.ErrFrameTooLarge):
		h.log.Warn("Oversized frame, closing connection", "user_id", h.user.ID, "error", err)
	case ctx.Err() != nil || stderrors.Is(err, net.ErrClosed):
		h.log.Debug("Connection closed locally")
	default:
		h.log.Debug("Connection lost", "error", fmt.Errorf("%w: %v", errors.ErrConnectionLost, err))
	}
}

// dispatch returns an error only when the connection must be dropped.
func (h *Handler) dispatch(ctx context.Context, req protocol.Request) error {
	if h.state == stateUnauthenticated {
		switch req.Action {
		case protocol.ActionRegister:
			return h.register(ctx, req)
		case protocol.ActionLogin:
			return h.login(ctx, req)
		default:
			return h.fail(errors.ErrNotAuthenticated)
		}
	}

	switch req.Action {
	case protocol.ActionRegister, protocol.ActionLogin:
		return h.fail(errors.ErrAlreadyAuthenticated)
	case protocol.ActionSendMessage:
		return h.sendMessage(ctx, req)
	case protocol.ActionJoinRoom:
		return h.joinRoom(ctx, req)
	case protocol.ActionLeaveRoom:
		return h.leaveRoom(ctx, req)
	case protocol.ActionGetRooms:
		return h.getRooms(ctx)
	case protocol.ActionGetMyRooms:
		return h.getMyRooms(ctx)
	case protocol.ActionGetHistory:
		return h.getHistory(ctx, req)
	case protocol.ActionGetMembers:
		return h.getMembers(ctx, req)
	case protocol.ActionCreateRoom:
		return h.createRoom(ctx, req)
	default:
		return h.fail(errors.ErrUnknownAction)
	}
}

func (h *Handler) register(ctx context.Context, req protocol.Request) error {
	_, err := h.server.authService.Register(ctx, domain.RegisterCommand{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		h.logFailure("Registration failed", err)
		return h.reply(protocol.RegisterResponse{Type: protocol.TypeRegister, Success: false, Message: errors.ToWireMessage(err)})
	}
	return h.reply(protocol.RegisterResponse{Type: protocol.TypeRegister, Success: true, Message: "Registration successful"})
}

func (h *Handler) login(ctx context.Context, req protocol.Request) error {
	user, err := h.server.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrUserNotFound):
			h.log.Info("Login failed, unknown user")
		case stderrors.Is(err, errors.ErrInvalidCredentials):
			h.log.Info("Login failed, wrong password")
		default:
			h.log.Error("Login failed", "error", err)
		}
		return h.reply(protocol.LoginResponse{Type: protocol.TypeLogin, Success: false, Message: errors.ToWireMessage(err)})
	}

	if err = h.server.bind(ctx, h.session, user); err != nil {
		h.log.Error("Cannot mark user online", "user_id", user.ID, "error", err)
	}
	h.user = user
	h.user.IsOnline = true
	h.state = stateAuthenticated
	h.log = h.log.With("user_id", user.ID)

	if _, err = h.server.chatService.JoinRoom(ctx, user.ID, domain.DefaultRoomID); err != nil {
		h.log.Error("Cannot ensure default room membership", "error", err)
	}
	h.server.registry.Join(h.session, domain.DefaultRoomID)
	h.log.Info("User logged in")

	if err = h.reply(protocol.LoginResponse{Type: protocol.TypeLogin, Success: true, User: ptr(protocol.NewUser(h.user))}); err != nil {
		return err
	}
	h.server.broadcast(ctx, domain.DefaultRoomID, protocol.UserJoinedBroadcast{
		Type:     protocol.TypeUserJoined,
		RoomID:   int64(domain.DefaultRoomID),
		Username: user.Username,
	})
	return nil
}

func (h *Handler) sendMessage(ctx context.Context, req protocol.Request) error {
	message, err := h.server.chatService.PostMessage(ctx, domain.PostMessageCommand{
		RoomID:         req.Room(),
		SenderID:       h.user.ID,
		SenderUsername: h.user.Username,
		Content:        req.Content,
		Type:           req.Type(),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		h.logFailure("Message refused", err)
		return h.fail(err)
	}
	h.server.monitor.IncrMessagesPosted()
	h.server.broadcast(ctx, message.RoomID, protocol.NewMessageBroadcast(message))
	return nil
}

func (h *Handler) joinRoom(ctx context.Context, req protocol.Request) error {
	room, err := h.server.chatService.JoinRoom(ctx, h.user.ID, req.Room())
	if err != nil {
		h.logFailure("Join refused", err)
		return h.fail(err)
	}
	h.server.registry.Join(h.session, room.ID)
	return h.reply(protocol.RoomResponse{Type: protocol.TypeJoinedRoom, RoomID: int64(room.ID)})
}

func (h *Handler) leaveRoom(ctx context.Context, req protocol.Request) error {
	roomID := req.Room()
	if err := h.server.chatService.LeaveRoom(ctx, h.user.ID, roomID); err != nil {
		h.logFailure("Leave refused", err)
		return h.fail(err)
	}
	h.server.registry.Leave(h.user.ID, roomID)
	return h.reply(protocol.RoomResponse{Type: protocol.TypeLeftRoom, RoomID: int64(roomID)})
}

func (h *Handler) getRooms(ctx context.Context) error {
	rooms, err := h.server.chatService.Rooms(ctx)
	if err != nil {
		h.logFailure("Cannot list rooms", err)
		return h.fail(err)
	}
	return h.reply(protocol.NewRooms(rooms))
}

func (h *Handler) getMyRooms(ctx context.Context) error {
	rooms, err := h.server.chatService.UserRooms(ctx, h.user.ID)
	if err != nil {
		h.logFailure("Cannot list user rooms", err)
		return h.fail(err)
	}
	return h.reply(protocol.NewRooms(rooms))
}

func (h *Handler) getHistory(ctx context.Context, req protocol.Request) error {
	roomID := req.Room()
	messages, err := h.server.chatService.History(ctx, h.user.ID, roomID, req.HistoryLimit(h.server.settings.MaxHistoryLimit))
	if err != nil {
		h.logFailure("Cannot read history", err)
		return h.fail(err)
	}
	return h.reply(protocol.NewHistory(roomID, messages))
}

func (h *Handler) getMembers(ctx context.Context, req protocol.Request) error {
	roomID := req.Room()
	users, err := h.server.chatService.Members(ctx, h.user.ID, roomID)
	if err != nil {
		h.logFailure("Cannot list members", err)
		return h.fail(err)
	}
	return h.reply(protocol.NewMembers(roomID, users))
}

func (h *Handler) createRoom(ctx context.Context, req protocol.Request) error {
	room, err := h.server.chatService.CreateRoom(ctx, domain.CreateRoomCommand{
		Name:        req.RoomName,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		CreatedBy:   h.user.ID,
	})
	if err != nil {
		h.logFailure("Room creation refused", err)
		return h.fail(err)
	}
	h.server.registry.Join(h.session, room.ID)
	return h.reply(protocol.RoomCreatedResponse{Type: protocol.TypeRoomCreated, Room: protocol.NewRoom(room)})
}

// fail reports err to the peer with its user-facing text.
func (h *Handler) fail(err error) error {
	return h.reply(protocol.NewError(errors.ToWireMessage(err)))
}

func (h *Handler) reply(v any) error {
	frame, err := protocol.Encode(v)
	if err != nil {
		h.log.Error("Cannot encode reply", "error", err)
		return nil
	}
	return h.session.Send(frame)
}

// logFailure keeps expected refusals at debug level and surfaces the rest.
func (h *Handler) logFailure(msg string, err error) {
	if errors.ToWireMessage(err) == errors.InternalMessage {
		h.log.Error(msg, "error", err)
		return
	}
	h.log.Debug(msg, "error", err)
}

func ptr[T any](v T) *T {
	return &v
}
