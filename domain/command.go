package domain

import (
	"time"
)

type PostMessageCommand struct {
	RoomID         RoomID
	SenderID       UserID
	SenderUsername string
	Content        string
	Type           MessageType
	CreatedAt      time.Time
}

type CreateRoomCommand struct {
	Name        string
	Description *string
	IsPrivate   bool
	CreatedBy   UserID
}

type RegisterCommand struct {
	Username string
	Password string
	Email    *string
}
