package domain

import "time"

type Role string

const (
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Membership is the durable record that a user belongs to a room.
// It is unique per (UserID, RoomID) and independent of live connections.
type Membership struct {
	UserID   UserID
	RoomID   RoomID
	Role     Role
	JoinedAt time.Time
}
