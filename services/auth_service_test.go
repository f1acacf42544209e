package services

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/mocks"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockProtector := mocks.NewMockProtector(ctrl)
	svc := NewAuthService(log, mockRepo, mockProtector)
	ctx := context.Background()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)

		// Expect CreateUser to be called with the hashed password (not the plain one)
		mockProtector.EXPECT().Hash("secret1").Return("hashed", nil).Times(1)
		mockRepo.EXPECT().
			CreateUser("alice", "hashed", nil, gomock.Any()).
			Return(domain.User{ID: 1, Username: "alice"}, nil).
			Times(1)

		user, err := svc.Register(ctx, domain.RegisterCommand{Username: "alice", Password: "secret1", Email: lo.ToPtr("")})

		req.NoError(err)
		req.EqualValues(1, user.ID)
	})

	t.Run("should fail when input is invalid", func(t *testing.T) {
		req := require.New(t)

		// Neither the protector nor the repository is expected to be called
		_, err := svc.Register(ctx, domain.RegisterCommand{Username: "al ice", Password: "secret1"})

		req.ErrorIs(err, errors.ErrInvalidRegistration)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)

		mockProtector.EXPECT().Hash("secret1").Return("hashed", nil).Times(1)
		mockRepo.EXPECT().
			CreateUser("alice", "hashed", nil, gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(ctx, domain.RegisterCommand{Username: "alice", Password: "secret1"})

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	mockProtector := mocks.NewMockProtector(ctrl)
	svc := NewAuthService(log, mockRepo, mockProtector)
	ctx := context.Background()
	storedUser := domain.User{ID: 3, Username: "alice", PasswordHash: "hashed"}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByUsername("alice").Return(storedUser, nil).Times(1)
		mockProtector.EXPECT().Verify("secret1", "hashed").Return(true, nil).Times(1)

		user, err := svc.Login(ctx, "alice", "secret1")

		req.NoError(err)
		req.Equal(storedUser, user)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByUsername("alice").Return(storedUser, nil).Times(1)
		mockProtector.EXPECT().Verify("wrong", "hashed").Return(false, nil).Times(1)

		_, err := svc.Login(ctx, "alice", "wrong")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should keep user not found distinct but reported as invalid credentials", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err := svc.Login(ctx, "ghost", "anyPassword")

		req.ErrorIs(err, errors.ErrUserNotFound)
		req.Equal("Invalid credentials", errors.ToWireMessage(err))
	})
}
