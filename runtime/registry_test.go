package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu     sync.Mutex
	id     string
	userID domain.UserID
	frames [][]byte
	fail   bool
	closed bool
}

func newFakeSink(userID domain.UserID) *fakeSink {
	return &fakeSink{id: uuid.NewString(), userID: userID}
}

func (s *fakeSink) ID() string            { return s.id }
func (s *fakeSink) UserID() domain.UserID { return s.userID }

func (s *fakeSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail || s.closed {
		return errors.ErrSendFailure
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func TestRegistry_Bind_And_Join_One_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := newFakeSink(1)

	// Given no user is connected
	req.Zero(registry.Sessions())
	req.Empty(registry.SinksForRoom(domain.DefaultRoomID))

	// When a user binds and joins the default room
	req.Nil(registry.Bind(1, sink))
	req.True(registry.Join(sink, domain.DefaultRoomID))

	// Then
	req.Equal(1, registry.Sessions())
	current, ok := registry.Lookup(1)
	req.True(ok)
	req.Equal(sink, current)
	req.True(registry.InRoom(1, domain.DefaultRoomID))
	req.Len(registry.SinksForRoom(domain.DefaultRoomID), 1)
	req.Contains(registry.SinksForRoom(domain.DefaultRoomID), sink)
}

func TestRegistry_One_Room_Multiple_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink1 := newFakeSink(1)
	sink2 := newFakeSink(2)

	// When two users join the same room
	registry.Bind(1, sink1)
	registry.Bind(2, sink2)
	registry.Join(sink1, domain.DefaultRoomID)
	registry.Join(sink2, domain.DefaultRoomID)

	// Then both are reachable
	req.Equal(2, registry.Sessions())
	req.ElementsMatch([]contract.Sink{sink1, sink2}, registry.SinksForRoom(domain.DefaultRoomID))
}

func TestRegistry_Rebind_Returns_Previous_And_Clears_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	old := newFakeSink(1)
	fresh := newFakeSink(1)

	// Given a user already live in two rooms
	registry.Bind(1, old)
	registry.Join(old, 1)
	registry.Join(old, 7)

	// When the same user binds a new session
	previous := registry.Bind(1, fresh)

	// Then the old session is handed back for eviction
	req.Equal(old, previous)
	// And the user no longer appears in any live room
	req.Empty(registry.SinksForRoom(1))
	req.Empty(registry.SinksForRoom(7))
	req.Equal(1, registry.Sessions())
}

func TestRegistry_Unbind_Is_Presence_Checked(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	old := newFakeSink(1)
	fresh := newFakeSink(1)

	// Given the old session was evicted by a new one
	registry.Bind(1, old)
	registry.Bind(1, fresh)
	registry.Join(fresh, 1)

	// When the evicted session disconnects late
	req.False(registry.Unbind(1, old))

	// Then the fresh binding survives
	current, ok := registry.Lookup(1)
	req.True(ok)
	req.Equal(fresh, current)
	req.True(registry.InRoom(1, 1))

	// And a stale join is refused
	req.False(registry.Join(old, 3))
	req.False(registry.InRoom(1, 3))

	// When the current session disconnects
	req.True(registry.Unbind(1, fresh))
	// Then a second disconnect is a no-op
	req.False(registry.Unbind(1, fresh))
	req.Zero(registry.Sessions())
	req.Empty(registry.SinksForRoom(1))
}

func TestRegistry_Leave_Removes_Empty_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := newFakeSink(1)
	registry.Bind(1, sink)
	registry.Join(sink, 4)

	// When the only member leaves
	req.True(registry.Leave(1, 4))

	// Then the room entry is gone
	req.False(registry.Leave(1, 4))
	req.Nil(registry.SinksForRoom(4))
	_, exists := registry.roomMembers[4]
	req.False(exists)
}

func TestRegistry_Concurrent_Access(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(userID domain.UserID) {
			defer wg.Done()
			sink := newFakeSink(userID)
			registry.Bind(userID, sink)
			registry.Join(sink, domain.DefaultRoomID)
			_ = registry.SinksForRoom(domain.DefaultRoomID)
			if userID%2 == 0 {
				registry.Unbind(userID, sink)
			}
		}(domain.UserID(i))
	}
	wg.Wait()

	req.Equal(25, registry.Sessions())
	req.Len(registry.SinksForRoom(domain.DefaultRoomID), 25)
}
