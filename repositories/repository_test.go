package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenBadger(InMemory, logs.GetLoggerFromLevel(slog.LevelError), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenBadger_On_Disk_Survives_Reopen(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	dir := t.TempDir()

	// Given a user stored on disk
	db, err := OpenBadger(dir, log, false)
	req.NoError(err)
	_, err = NewUserRepository(db).CreateUser("alice", "hash", nil, testNow)
	req.NoError(err)
	req.NoError(db.Close())

	// When the database is reopened
	db, err = OpenBadger(dir, log, false)
	req.NoError(err)
	defer db.Close()

	// Then the user is still there and the ID counter carries on
	user, err := NewUserRepository(db).GetUserByUsername("alice")
	req.NoError(err)
	req.EqualValues(1, user.ID)
	bob, err := NewUserRepository(db).CreateUser("bob", "hash", nil, testNow)
	req.NoError(err)
	req.EqualValues(2, bob.ID)
}
