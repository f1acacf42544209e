package repositories

import (
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"
)

// InMemory is the BADGER_FILEPATH value that keeps the whole store in RAM.
const InMemory = ":memory:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OpenBadger opens the database at path, or an in-memory one for InMemory.
func OpenBadger(path string, log *slog.Logger, debug bool) (*badger.DB, error) {
	var options badger.Options
	if path == InMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	} else {
		options = badger.DefaultOptions(path)
	}
	if debug {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	log.Debug("BadgerDB opened", "path", path)
	return db, nil
}

// writer serializes the read-modify-write transactions of one repository.
// Badger would otherwise reject concurrent ones with ErrConflict.
type writer struct {
	db *badger.DB
	mu sync.Mutex
}

func (w *writer) update(fn func(txn *badger.Txn) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.db.Update(fn)
}

// nextID increments the counter stored at key inside txn.
// IDs start at 1.
func nextID(txn *badger.Txn, key string) (int64, error) {
	current, err := readCounter(txn, key)
	if err != nil {
		return 0, err
	}
	next := current + 1
	return next, writeCounter(txn, key, next)
}

func readCounter(txn *badger.Txn, key string) (int64, error) {
	item, err := txn.Get([]byte(key))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var current int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupted counter %s", key)
		}
		current = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return current, err
}

func writeCounter(txn *badger.Txn, key string, value int64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	return txn.Set([]byte(key), buf)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// getJSON decodes the value at key into v. Missing keys return badger.ErrKeyNotFound.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set([]byte(key), data)
}
