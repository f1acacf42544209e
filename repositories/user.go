//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const usersCounter = "counter:users"

type IUserRepository interface {
	CreateUser(username, passwordHash string, email *string, at time.Time) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
	GetUserByID(id domain.UserID) (domain.User, error)
	UpdateUserStatus(id domain.UserID, online bool, at time.Time) error
}

type UserRepository struct {
	writer
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{writer{db: db}}
}

// diskUser is the stored form of a user, independent of the domain struct layout.
type diskUser struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Email        *string    `json:"email,omitempty"`
	IsOnline     bool       `json:"is_online"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
}

func userKey(id domain.UserID) string { return fmt.Sprintf("user:id:%019d", id) }

func usernameKey(username string) string { return "user:name:" + username }

// CreateUser persists a new account and its username index in one transaction.
// Usernames are compared byte for byte.
func (u *UserRepository) CreateUser(username, passwordHash string, email *string, at time.Time) (domain.User, error) {
	var user domain.User
	err := u.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, usernameKey(username))
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUserAlreadyExists
		}
		id, err := nextID(txn, usersCounter)
		if err != nil {
			return err
		}
		user = domain.User{
			ID:           domain.UserID(id),
			Username:     username,
			PasswordHash: passwordHash,
			Email:        email,
			CreatedAt:    at.UTC(),
		}
		if err = setJSON(txn, userKey(user.ID), fromUser(user)); err != nil {
			return err
		}
		return txn.Set([]byte(usernameKey(username)), []byte(strconv.FormatInt(id, 10)))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var disk diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(usernameKey(username)))
		if err != nil {
			return err
		}
		var id int64
		err = item.Value(func(val []byte) error {
			id, err = strconv.ParseInt(string(val), 10, 64)
			return err
		})
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(domain.UserID(id)), &disk)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func (u *UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var disk diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &disk)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// UpdateUserStatus flips the online flag and stamps LastSeen.
func (u *UserRepository) UpdateUserStatus(id domain.UserID, online bool, at time.Time) error {
	err := u.update(func(txn *badger.Txn) error {
		var disk diskUser
		if err := getJSON(txn, userKey(id), &disk); err != nil {
			return err
		}
		seen := at.UTC()
		disk.IsOnline = online
		disk.LastSeen = &seen
		return setJSON(txn, userKey(id), disk)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           int64(user.ID),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Email:        user.Email,
		IsOnline:     user.IsOnline,
		CreatedAt:    user.CreatedAt,
		LastSeen:     user.LastSeen,
	}
}

func toUser(disk diskUser) domain.User {
	return domain.User{
		ID:           domain.UserID(disk.ID),
		Username:     disk.Username,
		PasswordHash: disk.PasswordHash,
		Email:        disk.Email,
		IsOnline:     disk.IsOnline,
		CreatedAt:    disk.CreatedAt,
		LastSeen:     disk.LastSeen,
	}
}
