package services

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/moderation"
	"chat-hub/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type IChatService interface {
	EnsureDefaultRoom(ctx context.Context) (domain.Room, error)
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	History(ctx context.Context, userID domain.UserID, roomID domain.RoomID, limit int) ([]domain.Message, error)
	Rooms(ctx context.Context) ([]domain.Room, error)
	UserRooms(ctx context.Context, userID domain.UserID) ([]domain.Room, error)
	JoinRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (domain.Room, error)
	LeaveRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error
	CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error)
	Members(ctx context.Context, userID domain.UserID, roomID domain.RoomID) ([]domain.User, error)
	SetOnline(ctx context.Context, userID domain.UserID, online bool) error
}

// ChatService holds the durable side of every chat operation.
// Live fan-out stays in the server, this service never touches a connection.
type ChatService struct {
	log               *slog.Logger
	userRepository    repositories.IUserRepository
	roomRepository    repositories.IRoomRepository
	messageRepository repositories.IMessageRepository
	protector         contract.Protector
	moderator         *moderation.Moderator
	now               func() time.Time
}

func NewChatService(log *slog.Logger,
	userRepository repositories.IUserRepository,
	roomRepository repositories.IRoomRepository,
	messageRepository repositories.IMessageRepository,
	protector contract.Protector,
	moderator *moderation.Moderator) *ChatService {
	return &ChatService{
		log:               log,
		userRepository:    userRepository,
		roomRepository:    roomRepository,
		messageRepository: messageRepository,
		protector:         protector,
		moderator:         moderator,
		now:               time.Now,
	}
}

func (s *ChatService) EnsureDefaultRoom(ctx context.Context) (domain.Room, error) {
	return s.roomRepository.EnsureDefaultRoom(s.now())
}

// PostMessage moderates then encrypts the content before it is stored.
// The returned message carries the ciphertext, as every reader will see it.
func (s *ChatService) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if _, err := s.accessRoom(cmd.SenderID, cmd.RoomID); err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	content := cmd.Content
	if s.moderator != nil {
		var words []string
		content, words = s.moderator.Censor(content)
		if len(words) > 0 {
			s.log.Info("Message censored", "user_id", cmd.SenderID, "room_id", cmd.RoomID, "count", len(words))
		}
	}

	ciphertext, err := s.protector.Encrypt(content)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encryption failed: %w", err)
	}

	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	return s.messageRepository.SaveMessage(domain.Message{
		SenderID:       cmd.SenderID,
		SenderUsername: cmd.SenderUsername,
		RoomID:         cmd.RoomID,
		Content:        ciphertext,
		Type:           cmd.Type,
		CreatedAt:      createdAt,
		IsEncrypted:    true,
	})
}

func (s *ChatService) History(ctx context.Context, userID domain.UserID, roomID domain.RoomID, limit int) ([]domain.Message, error) {
	if _, err := s.accessRoom(userID, roomID); err != nil {
		return nil, err
	}
	return s.messageRepository.RecentMessages(roomID, limit)
}

func (s *ChatService) Rooms(ctx context.Context) ([]domain.Room, error) {
	return s.roomRepository.ListRooms()
}

func (s *ChatService) UserRooms(ctx context.Context, userID domain.UserID) ([]domain.Room, error) {
	return s.roomRepository.ListUserRooms(userID)
}

// JoinRoom makes sure userID holds a durable membership of roomID.
// Public rooms are open, private rooms only admit existing members.
func (s *ChatService) JoinRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	room, err := s.roomRepository.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	member, err := s.roomRepository.IsMember(userID, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if member {
		return room, nil
	}
	if room.IsPrivate {
		return domain.Room{}, errors.ErrNotRoomMember
	}
	err = s.roomRepository.AddMember(userID, roomID, domain.RoleMember, s.now())
	if err != nil && !stderrors.Is(err, errors.ErrAlreadyMember) {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *ChatService) LeaveRoom(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error {
	if roomID == domain.DefaultRoomID {
		return errors.ErrCannotLeaveDefaultRoom
	}
	if _, err := s.roomRepository.GetRoom(roomID); err != nil {
		return err
	}
	return s.roomRepository.RemoveMember(userID, roomID)
}

func (s *ChatService) CreateRoom(ctx context.Context, cmd domain.CreateRoomCommand) (domain.Room, error) {
	if cmd.Description != nil && *cmd.Description == "" {
		cmd.Description = nil
	}
	if err := auth.ValidateCreateRoom(cmd); err != nil {
		return domain.Room{}, err
	}
	room, err := s.roomRepository.CreateRoom(cmd, s.now())
	if err != nil {
		return domain.Room{}, err
	}
	s.log.Info("Room created", "room_id", room.ID, "user_id", cmd.CreatedBy, "private", room.IsPrivate)
	return room, nil
}

// Members resolves the durable members of a room into users.
// Memberships pointing to a vanished user are skipped.
func (s *ChatService) Members(ctx context.Context, userID domain.UserID, roomID domain.RoomID) ([]domain.User, error) {
	if _, err := s.accessRoom(userID, roomID); err != nil {
		return nil, err
	}
	memberships, err := s.roomRepository.ListMembers(roomID)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.userRepository.GetUserByID(m.UserID)
		if stderrors.Is(err, errors.ErrUserNotFound) {
			s.log.Warn("Membership without user", "user_id", m.UserID, "room_id", roomID)
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// accessRoom loads roomID and checks userID may read or post in it.
// Private rooms are reserved to their durable members.
func (s *ChatService) accessRoom(userID domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	room, err := s.roomRepository.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.IsPrivate {
		return room, nil
	}
	member, err := s.roomRepository.IsMember(userID, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !member {
		return domain.Room{}, errors.ErrNotRoomMember
	}
	return room, nil
}

func (s *ChatService) SetOnline(ctx context.Context, userID domain.UserID, online bool) error {
	return s.userRepository.UpdateUserStatus(userID, online, s.now())
}
