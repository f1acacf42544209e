package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"sync"
)

type Set map[domain.UserID]struct{}

var _ contract.IRegistry = (*Registry)(nil)

// Registry holds both the live session directory and the live room table.
// A single lock guards the two maps so readers never observe one updated without the other.
// It is never held across socket I/O.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.UserID]contract.Sink // map user -> live connection
	roomMembers map[domain.RoomID]Set           // map room to connected users
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.UserID]contract.Sink),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Bind makes sink the live session of userID.
// A previous session, if any, is returned so the caller can evict it.
// The user is removed from every live room: the new session starts from a clean slate.
func (r *Registry) Bind(userID domain.UserID, sink contract.Sink) contract.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.sessions[userID]
	r.sessions[userID] = sink
	r.removeFromRooms(userID)
	if !ok || previous == sink {
		return nil
	}
	return previous
}

// Unbind removes userID only if sink is still its current session.
// An evicted session disconnecting late must not tear down its successor.
func (r *Registry) Unbind(userID domain.UserID, sink contract.Sink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[userID]
	if !ok || current != sink {
		return false
	}
	delete(r.sessions, userID)
	r.removeFromRooms(userID)
	return true
}

func (r *Registry) Lookup(userID domain.UserID) (contract.Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// Join adds the owner of sink to the live set of roomID.
// It is a no-op when sink is no longer the bound session of its user.
func (r *Registry) Join(sink contract.Sink, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := sink.UserID()
	if current, ok := r.sessions[userID]; !ok || current != sink {
		return false
	}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][userID] = struct{}{}
	return true
}

// Leave removes userID from the live set of roomID.
// No empty sets are left in the room map.
func (r *Registry) Leave(userID domain.UserID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return false
	}
	if _, ok = members[userID]; !ok {
		return false
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.roomMembers, roomID)
	}
	return true
}

// SinksForRoom returns a snapshot of the live sessions of a room.
// It performs a two-step lookup:
// 1. Identifies user IDs associated with the room via roomMembers.
// 2. Resolves those IDs into actual sinks using the sessions map.
//
// The returned slice is owned by the caller and can be iterated without the lock.
// Returns nil if the room has no live members.
func (r *Registry) SinksForRoom(roomID domain.RoomID) []contract.Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	activeSinks := make([]contract.Sink, 0, len(members))
	for userID := range members {
		if sink, exists := r.sessions[userID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// InRoom reports whether userID is in the live set of roomID.
func (r *Registry) InRoom(userID domain.UserID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roomMembers[roomID][userID]
	return ok
}

func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// removeFromRooms must be called with the write lock held.
func (r *Registry) removeFromRooms(userID domain.UserID) {
	for roomID, members := range r.roomMembers {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
