//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"context"
	"reflect"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Protector hashes passwords and seals message payloads.
// Its internals are opaque to the chat core.
type Protector interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Sink is the outbound side of one live connection.
// Send must not block on network I/O; a failure means the peer is gone.
type Sink interface {
	ID() string
	UserID() domain.UserID
	Send(frame []byte) error
	Close()
}

type IRegistry interface {
	Bind(userID domain.UserID, sink Sink) Sink
	Unbind(userID domain.UserID, sink Sink) bool
	Lookup(userID domain.UserID) (Sink, bool)
	Join(sink Sink, roomID domain.RoomID) bool
	Leave(userID domain.UserID, roomID domain.RoomID) bool
	SinksForRoom(roomID domain.RoomID) []Sink
	Sessions() int
}
