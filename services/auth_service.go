package services

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/repositories"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
)

type IAuthService interface {
	Register(ctx context.Context, cmd domain.RegisterCommand) (domain.User, error)
	Login(ctx context.Context, username, password string) (domain.User, error)
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	protector      contract.Protector
	now            func() time.Time
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, protector contract.Protector) *AuthService {
	return &AuthService{log: log, userRepository: repo, protector: protector, now: time.Now}
}

// Register creates an account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, cmd domain.RegisterCommand) (domain.User, error) {
	if cmd.Email != nil && *cmd.Email == "" {
		cmd.Email = nil
	}

	// 1. Validate business rules (username shape, password length, email format)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(cmd); err != nil {
		return domain.User{}, err
	}

	// 2. Hash the password
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := s.protector.Hash(cmd.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	user, err := s.userRepository.CreateUser(cmd.Username, hashedPassword, cmd.Email, s.now())
	if err != nil {
		return domain.User{}, err // Will propagate ErrUserAlreadyExists if username is taken
	}
	s.log.Info("User registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials. Unknown user and wrong password stay distinct here
// so they can be logged, the wire layer reports both the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.User, error) {
	// 1. Retrieve user by username from storage
	user, err := s.userRepository.GetUserByUsername(username)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return domain.User{}, err
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("user lookup failed: %w", err)
	}

	// 2. Compare the provided password with the stored hash
	match, err := s.protector.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Warn("Stored password hash is unreadable", "user_id", user.ID, "error", err)
		return domain.User{}, errors.ErrInvalidCredentials
	}
	if !match {
		return domain.User{}, errors.ErrInvalidCredentials
	}
	return user, nil
}
