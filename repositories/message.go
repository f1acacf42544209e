//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const messagesCounter = "counter:messages"

type IMessageRepository interface {
	SaveMessage(message domain.Message) (domain.Message, error)
	RecentMessages(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

type MessageRepository struct {
	writer
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) IMessageRepository {
	return &MessageRepository{writer: writer{db: db}, log: log}
}

type diskMessage struct {
	ID             int64     `json:"id"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	RoomID         int64     `json:"room_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
	IsEncrypted    bool      `json:"is_encrypted"`
}

func messagePrefix(roomID domain.RoomID) string { return fmt.Sprintf("msg:%019d:", roomID) }

// SaveMessage assigns the next message ID and persists the message.
// The key is formatted as "msg:{room_id_padded}:{message_id_padded}": the 19-digit zero
// padding keeps lexicographical order equal to insertion order within a room.
func (m *MessageRepository) SaveMessage(message domain.Message) (domain.Message, error) {
	err := m.update(func(txn *badger.Txn) error {
		id, err := nextID(txn, messagesCounter)
		if err != nil {
			return err
		}
		message.ID = domain.MessageID(id)
		message.CreatedAt = message.CreatedAt.UTC()
		key := fmt.Sprintf("%s%019d", messagePrefix(message.RoomID), message.ID)
		return setJSON(txn, key, fromMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// RecentMessages returns the last limit messages of a room, oldest first.
// The scan runs newest-first from the end of the room prefix and is reversed afterwards.
func (m *MessageRepository) RecentMessages(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	if limit <= 0 {
		return messages, nil
	}
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix(roomID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Let's go to the newest position msg:{room}:9999999999999999999
		// Then, we go back and collect messages
		seekKey := append(slices.Clone(prefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit), "room_id", roomID)
				break
			}
			var disk diskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			messages = append(messages, toMessage(disk))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:             int64(message.ID),
		SenderID:       int64(message.SenderID),
		SenderUsername: message.SenderUsername,
		RoomID:         int64(message.RoomID),
		Content:        message.Content,
		Type:           string(message.Type),
		CreatedAt:      message.CreatedAt,
		IsEncrypted:    message.IsEncrypted,
	}
}

func toMessage(disk diskMessage) domain.Message {
	return domain.Message{
		ID:             domain.MessageID(disk.ID),
		SenderID:       domain.UserID(disk.SenderID),
		SenderUsername: disk.SenderUsername,
		RoomID:         domain.RoomID(disk.RoomID),
		Content:        disk.Content,
		Type:           domain.MessageType(disk.Type),
		CreatedAt:      disk.CreatedAt,
		IsEncrypted:    disk.IsEncrypted,
	}
}
