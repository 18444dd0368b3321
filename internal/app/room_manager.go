package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

// RoomManagerImpl creates rooms on first use and forgets them once they
// are empty and idle.
type RoomManagerImpl struct {
	pub core.Publisher
	obs Presence

	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

// NewRoomManager creates rooms that publish through pub and report every
// change to presence. A nil presence is allowed.
func NewRoomManager(pub core.Publisher, presence Presence) core.RoomManager {
	if presence == nil {
		presence = NopPresence{}
	}
	return &RoomManagerImpl{pub: pub, obs: presence, rooms: make(map[domain.RoomID]core.RoomService)}
}

func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = core.NewRoomService(id, f.pub, f.obs)
	f.rooms[id] = room
	log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	rooms := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		rooms = append(rooms, r)
	}
	f.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		_, live := r.Stream()
		out = append(out, core.RoomInfo{ID: r.ID(), MemberCount: r.MemberCount(), Live: live})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Release forgets the room if it has no members and no live stream.
// A concurrent Join on the released room gets ErrRoomClosed and retries.
func (f *RoomManagerImpl) Release(id domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok || !room.TryClose() {
		return
	}
	delete(f.rooms, id)
	log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("room released")
}
