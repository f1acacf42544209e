package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"chat-hub/moderation"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatFixture struct {
	svc       *ChatService
	users     *mocks.MockIUserRepository
	rooms     *mocks.MockIRoomRepository
	messages  *mocks.MockIMessageRepository
	protector *mocks.MockProtector
}

func newChatFixture(t *testing.T, words ...string) chatFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	moderator, err := moderation.NewModerator(words, '*', log)
	require.NoError(t, err)
	f := chatFixture{
		users:     mocks.NewMockIUserRepository(ctrl),
		rooms:     mocks.NewMockIRoomRepository(ctrl),
		messages:  mocks.NewMockIMessageRepository(ctrl),
		protector: mocks.NewMockProtector(ctrl),
	}
	f.svc = NewChatService(log, f.users, f.rooms, f.messages, f.protector, moderator)
	return f
}

func TestChatService_PostMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("should moderate, encrypt and persist", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, "badger")
		cmd := domain.PostMessageCommand{RoomID: 1, SenderID: 2, SenderUsername: "alice", Content: "hi badger", Type: domain.MessageTypeText}

		f.rooms.EXPECT().GetRoom(domain.RoomID(1)).Return(domain.Room{ID: 1}, nil)
		// The protector only ever sees the censored text
		f.protector.EXPECT().Encrypt("hi ******").Return("cipher", nil)
		f.messages.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) (domain.Message, error) {
			req.Equal("cipher", m.Content)
			req.True(m.IsEncrypted)
			req.False(m.CreatedAt.IsZero())
			m.ID = 10
			return m, nil
		})

		saved, err := f.svc.PostMessage(ctx, cmd)

		req.NoError(err)
		req.EqualValues(10, saved.ID)
		req.Equal("alice", saved.SenderUsername)
	})

	t.Run("should refuse unknown room", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(9)).Return(domain.Room{}, errors.ErrRoomNotFound)

		_, err := f.svc.PostMessage(ctx, domain.PostMessageCommand{RoomID: 9, Content: "hi"})

		req.ErrorIs(err, errors.ErrRoomNotFound)
	})

	t.Run("should refuse empty content", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(1)).Return(domain.Room{ID: 1}, nil)
		f.protector.EXPECT().Encrypt(gomock.Any()).Times(0)

		_, err := f.svc.PostMessage(ctx, domain.PostMessageCommand{RoomID: 1, Content: "  "})

		req.ErrorIs(err, errors.ErrEmptyMessage)
	})
}

func TestChatService_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("public room creates membership", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(4)).Return(domain.Room{ID: 4}, nil)
		f.rooms.EXPECT().IsMember(domain.UserID(2), domain.RoomID(4)).Return(false, nil)
		f.rooms.EXPECT().AddMember(domain.UserID(2), domain.RoomID(4), domain.RoleMember, gomock.Any()).Return(nil)

		room, err := f.svc.JoinRoom(ctx, 2, 4)

		req.NoError(err)
		req.EqualValues(4, room.ID)
	})

	t.Run("private room needs membership", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(5)).Return(domain.Room{ID: 5, IsPrivate: true}, nil)
		f.rooms.EXPECT().IsMember(domain.UserID(2), domain.RoomID(5)).Return(false, nil)
		f.rooms.EXPECT().AddMember(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := f.svc.JoinRoom(ctx, 2, 5)

		req.ErrorIs(err, errors.ErrNotRoomMember)
	})

	t.Run("existing member joins private room", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(5)).Return(domain.Room{ID: 5, IsPrivate: true}, nil)
		f.rooms.EXPECT().IsMember(domain.UserID(2), domain.RoomID(5)).Return(true, nil)

		_, err := f.svc.JoinRoom(ctx, 2, 5)

		req.NoError(err)
	})
}

func TestChatService_LeaveRoom(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newChatFixture(t)

	// The default room cannot be left
	req.ErrorIs(f.svc.LeaveRoom(ctx, 2, domain.DefaultRoomID), errors.ErrCannotLeaveDefaultRoom)

	f.rooms.EXPECT().GetRoom(domain.RoomID(4)).Return(domain.Room{ID: 4}, nil)
	f.rooms.EXPECT().RemoveMember(domain.UserID(2), domain.RoomID(4)).Return(nil)
	req.NoError(f.svc.LeaveRoom(ctx, 2, 4))
}

func TestChatService_CreateRoom_Validates(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.rooms.EXPECT().CreateRoom(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.svc.CreateRoom(context.Background(), domain.CreateRoomCommand{Name: "", CreatedBy: 1})

	req.ErrorIs(err, errors.ErrInvalidRoom)
}

func TestChatService_Members(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	f.rooms.EXPECT().GetRoom(domain.RoomID(1)).Return(domain.Room{ID: 1}, nil)
	f.rooms.EXPECT().ListMembers(domain.RoomID(1)).Return([]domain.Membership{{UserID: 1}, {UserID: 2}}, nil)
	f.users.EXPECT().GetUserByID(domain.UserID(1)).Return(domain.User{ID: 1, Username: "alice", IsOnline: true}, nil)
	f.users.EXPECT().GetUserByID(domain.UserID(2)).Return(domain.User{}, errors.ErrUserNotFound)

	users, err := f.svc.Members(context.Background(), 1, 1)

	req.NoError(err)
	req.Len(users, 1)
	req.Equal("alice", users[0].Username)
}

func TestChatService_Private_Room_Access(t *testing.T) {
	ctx := context.Background()
	private := domain.Room{ID: 5, IsPrivate: true}

	t.Run("outsider cannot post, read or list", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(5)).Return(private, nil).Times(3)
		f.rooms.EXPECT().IsMember(domain.UserID(2), domain.RoomID(5)).Return(false, nil).Times(3)
		f.protector.EXPECT().Encrypt(gomock.Any()).Times(0)
		f.messages.EXPECT().RecentMessages(gomock.Any(), gomock.Any()).Times(0)
		f.rooms.EXPECT().ListMembers(gomock.Any()).Times(0)

		_, err := f.svc.PostMessage(ctx, domain.PostMessageCommand{RoomID: 5, SenderID: 2, Content: "intrusion"})
		req.ErrorIs(err, errors.ErrNotRoomMember)
		_, err = f.svc.History(ctx, 2, 5, 10)
		req.ErrorIs(err, errors.ErrNotRoomMember)
		_, err = f.svc.Members(ctx, 2, 5)
		req.ErrorIs(err, errors.ErrNotRoomMember)
	})

	t.Run("member reads history", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t)
		f.rooms.EXPECT().GetRoom(domain.RoomID(5)).Return(private, nil)
		f.rooms.EXPECT().IsMember(domain.UserID(1), domain.RoomID(5)).Return(true, nil)
		f.messages.EXPECT().RecentMessages(domain.RoomID(5), 10).Return([]domain.Message{{ID: 1, RoomID: 5}}, nil)

		messages, err := f.svc.History(ctx, 1, 5, 10)

		req.NoError(err)
		req.Len(messages, 1)
	})
}
