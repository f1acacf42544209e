// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once saved.
package domain

import "time"

type MessageID int64

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeEmoji MessageType = "emoji"
)

// Message represents an immutable chat event.
// Content holds ciphertext when IsEncrypted is set.
type Message struct {
	ID             MessageID
	SenderID       UserID
	SenderUsername string
	RoomID         RoomID
	Content        string
	Type           MessageType
	CreatedAt      time.Time
	IsEncrypted    bool
}
