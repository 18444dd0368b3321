package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

// Membership tracks which connection is in which room. A connection is
// in at most one room at a time.
type Membership struct {
	reg   *Registry
	rooms core.RoomManager
	now   func() time.Time
}

func NewMembership(reg *Registry, rooms core.RoomManager) *Membership {
	return &Membership{reg: reg, rooms: rooms, now: time.Now}
}

// Join registers conn as userID, leaves its previous room and joins id.
// It returns the members already present, in join order.
func (m *Membership) Join(id domain.RoomID, conn core.ConnID, userID domain.UserID, name string) ([]core.MemberDTO, error) {
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrBadPayload, err)
	}
	user, err := m.reg.Register(conn, userID, name)
	if err != nil {
		return nil, err
	}
	if prev, ok := m.reg.RoomOf(conn); ok && prev != id {
		m.Leave(prev, conn)
	}

	member := domain.NewMember(user, m.now())
	for {
		room := m.rooms.GetOrCreate(id)
		members, err := room.Join(conn, member)
		if errors.Is(err, core.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.reg.SetRoom(conn, id)
		return members, nil
	}
}

// Leave is a no-op for unknown rooms and non-members.
func (m *Membership) Leave(id domain.RoomID, conn core.ConnID) bool {
	defer m.reg.ClearRoom(conn, id)
	room, ok := m.rooms.Get(id)
	if !ok {
		return false
	}
	host, live := room.Broadcaster()

	left := room.Leave(conn)
	if left {
		if live && host == conn {
			m.reg.UntrackStream(conn, id)
		}
		log.Debug().Str("module", "app.membership").Str("room", string(id)).Str("conn", string(conn)).Msg("left room")
	}
	m.rooms.Release(id)
	return left
}

func (m *Membership) MembersOf(id domain.RoomID) ([]core.MemberDTO, error) {
	room, ok := m.rooms.Get(id)
	if !ok {
		return nil, core.ErrNotFound
	}
	return room.MembersSnapshot(), nil
}
