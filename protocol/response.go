package protocol

import (
	"chat-hub/domain"
	"time"

	"github.com/samber/lo"
)

type ResponseType string

const (
	TypeRegister    ResponseType = "register"
	TypeLogin       ResponseType = "login"
	TypeJoinedRoom  ResponseType = "joined_room"
	TypeLeftRoom    ResponseType = "left_room"
	TypeMessage     ResponseType = "message"
	TypeHistory     ResponseType = "history"
	TypeRooms       ResponseType = "rooms"
	TypeRoomCreated ResponseType = "room_created"
	TypeMembers     ResponseType = "members"
	TypeUserJoined  ResponseType = "user_joined"
	TypeError       ResponseType = "error"
)

// User is the public view of domain.User; the password hash is never exposed.
type User struct {
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastSeen  *time.Time `json:"last_seen"`
	IsOnline  bool       `json:"is_online"`
}

type Room struct {
	RoomID      int64     `json:"room_id"`
	RoomName    string    `json:"room_name"`
	Description *string   `json:"description"`
	CreatedBy   *int64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	IsPrivate   bool      `json:"is_private"`
}

type Message struct {
	MessageID      int64     `json:"message_id"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	RoomID         int64     `json:"room_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Timestamp      time.Time `json:"timestamp"`
	IsEncrypted    bool      `json:"is_encrypted"`
}

type RegisterResponse struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
}

type LoginResponse struct {
	Type    ResponseType `json:"type"`
	Success bool         `json:"success"`
	User    *User        `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// RoomResponse acknowledges joined_room and left_room.
type RoomResponse struct {
	Type   ResponseType `json:"type"`
	RoomID int64        `json:"room_id"`
}

type MessageBroadcast struct {
	Type        ResponseType `json:"type"`
	MessageID   int64        `json:"message_id"`
	RoomID      int64        `json:"room_id"`
	Sender      string       `json:"sender"`
	Content     string       `json:"content"`
	MessageType string       `json:"message_type"`
}

type UserJoinedBroadcast struct {
	Type     ResponseType `json:"type"`
	RoomID   int64        `json:"room_id"`
	Username string       `json:"username"`
}

type HistoryResponse struct {
	Type     ResponseType `json:"type"`
	RoomID   int64        `json:"room_id"`
	Messages []Message    `json:"messages"`
}

type RoomsResponse struct {
	Type  ResponseType `json:"type"`
	Rooms []Room       `json:"rooms"`
}

type RoomCreatedResponse struct {
	Type ResponseType `json:"type"`
	Room Room         `json:"room"`
}

type MembersResponse struct {
	Type   ResponseType `json:"type"`
	RoomID int64        `json:"room_id"`
	Users  []User       `json:"users"`
}

type ErrorResponse struct {
	Type    ResponseType `json:"type"`
	Message string       `json:"message"`
}

func NewError(message string) ErrorResponse {
	return ErrorResponse{Type: TypeError, Message: message}
}

func NewUser(u domain.User) User {
	return User{
		UserID:    int64(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		LastSeen:  u.LastSeen,
		IsOnline:  u.IsOnline,
	}
}

func NewRoom(r domain.Room) Room {
	var createdBy *int64
	if r.CreatedBy != nil {
		createdBy = lo.ToPtr(int64(*r.CreatedBy))
	}
	return Room{
		RoomID:      int64(r.ID),
		RoomName:    r.Name,
		Description: r.Description,
		CreatedBy:   createdBy,
		CreatedAt:   r.CreatedAt,
		IsPrivate:   r.IsPrivate,
	}
}

func NewMessage(m domain.Message) Message {
	return Message{
		MessageID:      int64(m.ID),
		SenderID:       int64(m.SenderID),
		SenderUsername: m.SenderUsername,
		RoomID:         int64(m.RoomID),
		Content:        m.Content,
		MessageType:    string(m.Type),
		Timestamp:      m.CreatedAt,
		IsEncrypted:    m.IsEncrypted,
	}
}

func NewMessageBroadcast(m domain.Message) MessageBroadcast {
	return MessageBroadcast{
		Type:        TypeMessage,
		MessageID:   int64(m.ID),
		RoomID:      int64(m.RoomID),
		Sender:      m.SenderUsername,
		Content:     m.Content,
		MessageType: string(m.Type),
	}
}

func NewHistory(roomID domain.RoomID, messages []domain.Message) HistoryResponse {
	return HistoryResponse{
		Type:   TypeHistory,
		RoomID: int64(roomID),
		Messages: lo.Map(messages, func(m domain.Message, _ int) Message {
			return NewMessage(m)
		}),
	}
}

func NewRooms(rooms []domain.Room) RoomsResponse {
	return RoomsResponse{
		Type: TypeRooms,
		Rooms: lo.Map(rooms, func(r domain.Room, _ int) Room {
			return NewRoom(r)
		}),
	}
}

func NewMembers(roomID domain.RoomID, users []domain.User) MembersResponse {
	return MembersResponse{
		Type:   TypeMembers,
		RoomID: int64(roomID),
		Users: lo.Map(users, func(u domain.User, _ int) User {
			return NewUser(u)
		}),
	}
}
