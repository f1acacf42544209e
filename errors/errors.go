package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Wire protocol
	ErrMalformedFrame       = fmt.Errorf("malformed frame")
	ErrFrameTooLarge        = fmt.Errorf("frame exceeds maximum size")
	ErrUnknownAction        = fmt.Errorf("unknown action")
	ErrNotAuthenticated     = fmt.Errorf("not authenticated")
	ErrAlreadyAuthenticated = fmt.Errorf("already authenticated")

	// Accounts
	ErrUserAlreadyExists   = fmt.Errorf("username already exists")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrInvalidRegistration = fmt.Errorf("invalid registration data")

	// Rooms and messages
	ErrRoomNotFound           = fmt.Errorf("room not found")
	ErrRoomAlreadyExists      = fmt.Errorf("room already exists")
	ErrInvalidRoom            = fmt.Errorf("invalid room data")
	ErrNotRoomMember          = fmt.Errorf("not a member of this room")
	ErrAlreadyMember          = fmt.Errorf("already a member of this room")
	ErrCannotLeaveDefaultRoom = fmt.Errorf("cannot leave default room")
	ErrEmptyMessage           = fmt.Errorf("empty message")
	ErrEmptyWords             = fmt.Errorf("no censored words found")

	// Transport
	ErrConnectionLost = fmt.Errorf("connection lost")
	ErrSendFailure    = fmt.Errorf("send failure")
	ErrServerFull     = fmt.Errorf("server is full")
	ErrSessionClosed  = fmt.Errorf("session closed")

	// Protection
	ErrInvalidKey        = fmt.Errorf("invalid encryption key")
	ErrInvalidCiphertext = fmt.Errorf("invalid ciphertext")
)

// wireMessages holds the text sent to clients for errors they are allowed to see,
// checked in order. Anything else is reported with the generic internal message.
var wireMessages = []struct {
	err error
	msg string
}{
	{ErrUnknownAction, "Unknown action"},
	{ErrNotAuthenticated, "Not authenticated"},
	{ErrAlreadyAuthenticated, "Already authenticated"},
	{ErrUserAlreadyExists, "Username already exists"},
	{ErrUserNotFound, "Invalid credentials"},
	{ErrInvalidCredentials, "Invalid credentials"},
	{ErrInvalidRegistration, "Invalid registration data"},
	{ErrRoomNotFound, "Room not found"},
	{ErrRoomAlreadyExists, "Room already exists"},
	{ErrInvalidRoom, "Invalid room data"},
	{ErrNotRoomMember, "Not a member of this room"},
	{ErrCannotLeaveDefaultRoom, "Cannot leave default room"},
	{ErrEmptyMessage, "Empty message"},
	{ErrServerFull, "Server is full"},
}

const InternalMessage = "Internal server error"

// ToWireMessage translates an error into the message sent back to the peer.
// User not found and wrong password share the same text on purpose.
func ToWireMessage(err error) string {
	for _, w := range wireMessages {
		if stderrors.Is(err, w.err) {
			return w.msg
		}
	}
	return InternalMessage
}
