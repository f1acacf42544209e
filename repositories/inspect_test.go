package repositories

import (
	"chat-hub/domain"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestScan_Describes_Every_Entry(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)

	// Given a user, the default room and a message
	user, err := NewUserRepository(db).CreateUser("alice", "$argon2id$secret", nil, testNow)
	req.NoError(err)
	rooms := NewRoomRepository(db)
	_, err = rooms.EnsureDefaultRoom(testNow)
	req.NoError(err)
	req.NoError(rooms.AddMember(user.ID, domain.DefaultRoomID, domain.RoleMember, testNow))
	_, err = NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelError)).SaveMessage(domain.Message{
		SenderID: user.ID, SenderUsername: "alice", RoomID: domain.DefaultRoomID,
		Content: "ciphertext", Type: domain.MessageTypeText, CreatedAt: testNow, IsEncrypted: true,
	})
	req.NoError(err)

	// When every entry is scanned
	kinds := make(map[string]string)
	req.NoError(Scan(db, "", func(key string, val []byte) error {
		kind, detail := Describe(key, val)
		kinds[kind] = detail
		return nil
	}))

	// Then each kind is recognized and secrets stay hidden
	req.Equal("alice online=false", kinds["USER"])
	req.Equal("General private=false", kinds["ROOM"])
	req.Contains(kinds["MESSAGE"], "from=alice")
	req.NotContains(kinds["MESSAGE"], "ciphertext")
	req.Contains(kinds, "COUNTER")
	req.Contains(kinds, "MEMBER")
	req.Contains(kinds, "USER_INDEX")
	req.Contains(kinds, "ROOM_INDEX")
	req.Contains(kinds, "USER_ROOM")
	req.NotContains(kinds, "UNKNOWN")
	for _, detail := range kinds {
		req.NotContains(detail, "argon2id")
	}
}

func TestScan_Prefix(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	users := NewUserRepository(db)
	_, err := users.CreateUser("alice", "h", nil, testNow)
	req.NoError(err)
	_, err = users.CreateUser("bob", "h", nil, testNow)
	req.NoError(err)

	var keys []string
	req.NoError(Scan(db, "user:name:", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	req.Equal([]string{"user:name:alice", "user:name:bob"}, keys)
}
