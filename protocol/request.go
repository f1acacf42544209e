package protocol

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"fmt"
)

type Action string

const (
	ActionRegister    Action = "register"
	ActionLogin       Action = "login"
	ActionJoinRoom    Action = "join_room"
	ActionLeaveRoom   Action = "leave_room"
	ActionSendMessage Action = "send_message"
	ActionGetRooms    Action = "get_rooms"
	ActionGetMyRooms  Action = "get_my_rooms"
	ActionGetHistory  Action = "get_history"
	ActionGetMembers  Action = "get_members"
	ActionCreateRoom  Action = "create_room"
)

const DefaultHistoryLimit = 100

// Request is the union of every client action. Only the fields relevant
// to Action are read.
type Request struct {
	Action      Action  `json:"action"`
	Username    string  `json:"username,omitempty"`
	Password    string  `json:"password,omitempty"`
	Email       *string `json:"email,omitempty"`
	Content     string  `json:"content,omitempty"`
	RoomID      *int64  `json:"room_id,omitempty"`
	MessageType string  `json:"message_type,omitempty"`
	Limit       *int    `json:"limit,omitempty"`
	RoomName    string  `json:"room_name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPrivate   bool    `json:"is_private,omitempty"`
}

// ParseRequest decodes a frame produced by Decoder.Next.
func ParseRequest(frame []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return req, nil
}

// Room falls back to the default room when room_id is absent.
func (r Request) Room() domain.RoomID {
	if r.RoomID == nil {
		return domain.DefaultRoomID
	}
	return domain.RoomID(*r.RoomID)
}

func (r Request) Type() domain.MessageType {
	if r.MessageType == "" {
		return domain.MessageTypeText
	}
	return domain.MessageType(r.MessageType)
}

// HistoryLimit clamps the requested limit to [1, maxLimit].
func (r Request) HistoryLimit(maxLimit int) int {
	limit := DefaultHistoryLimit
	if r.Limit != nil {
		limit = *r.Limit
	}
	if limit < 1 {
		limit = 1
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
