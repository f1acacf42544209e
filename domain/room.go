package domain

import "time"

type RoomID int64

const (
	DefaultRoomID          RoomID = 1
	DefaultRoomName               = "General"
	DefaultRoomDescription        = "Default chat room for everyone"
)

type Room struct {
	ID          RoomID
	Name        string
	Description *string
	CreatedBy   *UserID // nil for the system room
	CreatedAt   time.Time
	IsPrivate   bool
}

// NewDefaultRoom returns the room every user is admitted to on login.
func NewDefaultRoom(at time.Time) Room {
	description := DefaultRoomDescription
	return Room{
		ID:          DefaultRoomID,
		Name:        DefaultRoomName,
		Description: &description,
		CreatedAt:   at,
	}
}

func (r Room) IsDefault() bool {
	return r.ID == DefaultRoomID
}
