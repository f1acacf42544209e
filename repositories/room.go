//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"chat-hub/domain"
	"chat-hub/errors"
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const roomsCounter = "counter:rooms"

type IRoomRepository interface {
	CreateRoom(cmd domain.CreateRoomCommand, at time.Time) (domain.Room, error)
	EnsureDefaultRoom(at time.Time) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRooms() ([]domain.Room, error)
	ListUserRooms(userID domain.UserID) ([]domain.Room, error)
	AddMember(userID domain.UserID, roomID domain.RoomID, role domain.Role, at time.Time) error
	RemoveMember(userID domain.UserID, roomID domain.RoomID) error
	IsMember(userID domain.UserID, roomID domain.RoomID) (bool, error)
	ListMembers(roomID domain.RoomID) ([]domain.Membership, error)
}

type RoomRepository struct {
	writer
}

func NewRoomRepository(db *badger.DB) IRoomRepository {
	return &RoomRepository{writer{db: db}}
}

type diskRoom struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	IsPrivate   bool      `json:"is_private"`
}

type diskMembership struct {
	UserID   int64     `json:"user_id"`
	RoomID   int64     `json:"room_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Key layout:
//
//	room:id:{room}          -> diskRoom
//	room:name:{name}        -> room id, iterated for name ordering
//	member:{room}:{user}    -> diskMembership
//	user_rooms:{user}:{room} -> empty, reverse index of member
func roomKey(id domain.RoomID) string { return fmt.Sprintf("room:id:%019d", id) }

func roomNameKey(name string) string { return "room:name:" + name }

func memberPrefix(roomID domain.RoomID) string { return fmt.Sprintf("member:%019d:", roomID) }

func memberKey(userID domain.UserID, roomID domain.RoomID) string {
	return fmt.Sprintf("%s%019d", memberPrefix(roomID), userID)
}

func userRoomsPrefix(userID domain.UserID) string { return fmt.Sprintf("user_rooms:%019d:", userID) }

func userRoomKey(userID domain.UserID, roomID domain.RoomID) string {
	return fmt.Sprintf("%s%019d", userRoomsPrefix(userID), roomID)
}

// CreateRoom stores the room, its name index and, when there is a creator, an admin membership.
func (r *RoomRepository) CreateRoom(cmd domain.CreateRoomCommand, at time.Time) (domain.Room, error) {
	var room domain.Room
	err := r.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, roomNameKey(cmd.Name))
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrRoomAlreadyExists
		}
		id, err := nextID(txn, roomsCounter)
		if err != nil {
			return err
		}
		creator := cmd.CreatedBy
		room = domain.Room{
			ID:          domain.RoomID(id),
			Name:        cmd.Name,
			Description: cmd.Description,
			CreatedBy:   &creator,
			CreatedAt:   at.UTC(),
			IsPrivate:   cmd.IsPrivate,
		}
		if err = putRoom(txn, room); err != nil {
			return err
		}
		return putMember(txn, domain.Membership{
			UserID:   creator,
			RoomID:   room.ID,
			Role:     domain.RoleAdmin,
			JoinedAt: room.CreatedAt,
		})
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// EnsureDefaultRoom creates room 1 if absent and returns it. Safe to call at every start.
func (r *RoomRepository) EnsureDefaultRoom(at time.Time) (domain.Room, error) {
	var room domain.Room
	err := r.update(func(txn *badger.Txn) error {
		var disk diskRoom
		err := getJSON(txn, roomKey(domain.DefaultRoomID), &disk)
		if err == nil {
			room = toRoom(disk)
			return nil
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		taken, err := exists(txn, roomNameKey(domain.DefaultRoomName))
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrRoomAlreadyExists
		}
		room = domain.NewDefaultRoom(at.UTC())
		if err = putRoom(txn, room); err != nil {
			return err
		}
		// Keep user-created rooms from ever reusing the default ID
		current, err := readCounter(txn, roomsCounter)
		if err != nil {
			return err
		}
		if current < int64(domain.DefaultRoomID) {
			return writeCounter(txn, roomsCounter, int64(domain.DefaultRoomID))
		}
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var disk diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomKey(id), &disk)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(disk), nil
}

// ListRooms walks the name index, so rooms come back ordered by name.
func (r *RoomRepository) ListRooms() ([]domain.Room, error) {
	rooms := make([]domain.Room, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:name:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id int64
			err := it.Item().Value(func(val []byte) error {
				var err error
				id, err = strconv.ParseInt(string(val), 10, 64)
				return err
			})
			if err != nil {
				return err
			}
			var disk diskRoom
			if err = getJSON(txn, roomKey(domain.RoomID(id)), &disk); err != nil {
				return err
			}
			rooms = append(rooms, toRoom(disk))
		}
		return nil
	})
	return rooms, err
}

// ListUserRooms returns the rooms userID holds a membership in, ordered by name.
func (r *RoomRepository) ListUserRooms(userID domain.UserID) ([]domain.Room, error) {
	rooms := make([]domain.Room, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := userRoomsPrefix(userID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefixStr):]), 10, 64)
			if err != nil {
				return err
			}
			var disk diskRoom
			if err = getJSON(txn, roomKey(domain.RoomID(id)), &disk); err != nil {
				return err
			}
			rooms = append(rooms, toRoom(disk))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByName(rooms)
	return rooms, nil
}

// AddMember records a durable membership. The room must exist.
func (r *RoomRepository) AddMember(userID domain.UserID, roomID domain.RoomID, role domain.Role, at time.Time) error {
	return r.update(func(txn *badger.Txn) error {
		found, err := exists(txn, roomKey(roomID))
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrRoomNotFound
		}
		member, err := exists(txn, memberKey(userID, roomID))
		if err != nil {
			return err
		}
		if member {
			return errors.ErrAlreadyMember
		}
		return putMember(txn, domain.Membership{UserID: userID, RoomID: roomID, Role: role, JoinedAt: at.UTC()})
	})
}

func (r *RoomRepository) RemoveMember(userID domain.UserID, roomID domain.RoomID) error {
	return r.update(func(txn *badger.Txn) error {
		member, err := exists(txn, memberKey(userID, roomID))
		if err != nil {
			return err
		}
		if !member {
			return errors.ErrNotRoomMember
		}
		if err = txn.Delete([]byte(memberKey(userID, roomID))); err != nil {
			return err
		}
		return txn.Delete([]byte(userRoomKey(userID, roomID)))
	})
}

func (r *RoomRepository) IsMember(userID domain.UserID, roomID domain.RoomID) (bool, error) {
	var member bool
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		member, err = exists(txn, memberKey(userID, roomID))
		return err
	})
	return member, err
}

// ListMembers returns the durable memberships of a room ordered by user ID.
func (r *RoomRepository) ListMembers(roomID domain.RoomID) ([]domain.Membership, error) {
	memberships := make([]domain.Membership, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(memberPrefix(roomID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk diskMembership
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}
			memberships = append(memberships, toMembership(disk))
		}
		return nil
	})
	return memberships, err
}

func putRoom(txn *badger.Txn, room domain.Room) error {
	if err := setJSON(txn, roomKey(room.ID), fromRoom(room)); err != nil {
		return err
	}
	return txn.Set([]byte(roomNameKey(room.Name)), []byte(strconv.FormatInt(int64(room.ID), 10)))
}

func putMember(txn *badger.Txn, m domain.Membership) error {
	if err := setJSON(txn, memberKey(m.UserID, m.RoomID), fromMembership(m)); err != nil {
		return err
	}
	return txn.Set([]byte(userRoomKey(m.UserID, m.RoomID)), nil)
}

func fromRoom(room domain.Room) diskRoom {
	disk := diskRoom{
		ID:          int64(room.ID),
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
		IsPrivate:   room.IsPrivate,
	}
	if room.CreatedBy != nil {
		creator := int64(*room.CreatedBy)
		disk.CreatedBy = &creator
	}
	return disk
}

func toRoom(disk diskRoom) domain.Room {
	room := domain.Room{
		ID:          domain.RoomID(disk.ID),
		Name:        disk.Name,
		Description: disk.Description,
		CreatedAt:   disk.CreatedAt,
		IsPrivate:   disk.IsPrivate,
	}
	if disk.CreatedBy != nil {
		creator := domain.UserID(*disk.CreatedBy)
		room.CreatedBy = &creator
	}
	return room
}

func fromMembership(m domain.Membership) diskMembership {
	return diskMembership{
		UserID:   int64(m.UserID),
		RoomID:   int64(m.RoomID),
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
}

func toMembership(disk diskMembership) domain.Membership {
	return domain.Membership{
		UserID:   domain.UserID(disk.UserID),
		RoomID:   domain.RoomID(disk.RoomID),
		Role:     domain.Role(disk.Role),
		JoinedAt: disk.JoinedAt,
	}
}

func sortByName(rooms []domain.Room) {
	slices.SortFunc(rooms, func(a, b domain.Room) int {
		return strings.Compare(a.Name, b.Name)
	})
}
