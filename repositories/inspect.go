package repositories

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

// InspectMapper labels the entries shown by the debug inspector.
func InspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Type, row.Detail = Describe(key, val)
	return row
}

// Describe returns the kind of a stored entry and a readable summary.
// Password hashes and message bodies are never part of the summary.
func Describe(key string, val []byte) (kind, detail string) {
	switch {
	case strings.HasPrefix(key, "counter:"):
		if len(val) != 8 {
			return "COUNTER", "corrupted"
		}
		return "COUNTER", fmt.Sprintf("%d", binary.BigEndian.Uint64(val))
	case strings.HasPrefix(key, "user:id:"):
		var disk diskUser
		if err := json.Unmarshal(val, &disk); err != nil {
			return "USER", "Error: unmarshal failed"
		}
		return "USER", fmt.Sprintf("%s online=%t", disk.Username, disk.IsOnline)
	case strings.HasPrefix(key, "user:name:"):
		return "USER_INDEX", "id=" + string(val)
	case strings.HasPrefix(key, "room:id:"):
		var disk diskRoom
		if err := json.Unmarshal(val, &disk); err != nil {
			return "ROOM", "Error: unmarshal failed"
		}
		return "ROOM", fmt.Sprintf("%s private=%t", disk.Name, disk.IsPrivate)
	case strings.HasPrefix(key, "room:name:"):
		return "ROOM_INDEX", "id=" + string(val)
	case strings.HasPrefix(key, "member:"):
		var disk diskMembership
		if err := json.Unmarshal(val, &disk); err != nil {
			return "MEMBER", "Error: unmarshal failed"
		}
		return "MEMBER", fmt.Sprintf("user=%d room=%d role=%s", disk.UserID, disk.RoomID, disk.Role)
	case strings.HasPrefix(key, "user_rooms:"):
		return "USER_ROOM", ""
	case strings.HasPrefix(key, "msg:"):
		var disk diskMessage
		if err := json.Unmarshal(val, &disk); err != nil {
			return "MESSAGE", "Error: unmarshal failed"
		}
		return "MESSAGE", fmt.Sprintf("from=%s type=%s bytes=%d encrypted=%t",
			disk.SenderUsername, disk.Type, len(disk.Content), disk.IsEncrypted)
	default:
		return "UNKNOWN", ""
	}
}

// Scan calls fn for every entry whose key starts with prefix, in key order.
func Scan(db *badger.DB, prefix string, fn func(key string, val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err = fn(string(item.KeyCopy(nil)), val); err != nil {
				return err
			}
		}
		return nil
	})
}
