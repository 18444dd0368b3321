package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

const MaxStreamTitleLen = 200

// Streams drives the Idle/Live lifecycle of the per-room broadcast.
type Streams struct {
	reg   *Registry
	rooms core.RoomManager
	now   func() time.Time
}

func NewStreams(reg *Registry, rooms core.RoomManager) *Streams {
	return &Streams{reg: reg, rooms: rooms, now: time.Now}
}

func (s *Streams) Start(id domain.RoomID, conn core.ConnID, userID domain.UserID, name, title string) (core.StreamInfo, error) {
	if err := id.Validate(); err != nil {
		return core.StreamInfo{}, fmt.Errorf("%w: %v", core.ErrBadPayload, err)
	}
	host, err := s.reg.Register(conn, userID, name)
	if err != nil {
		return core.StreamInfo{}, err
	}
	title = clipTitle(title)

	for {
		room := s.rooms.GetOrCreate(id)
		info, err := room.StartStream(conn, host, title, s.now())
		if errors.Is(err, core.ErrRoomClosed) {
			continue
		}
		if err != nil {
			// a failed start must not leave an empty room behind
			s.rooms.Release(id)
			return core.StreamInfo{}, err
		}
		s.reg.TrackStream(conn, id)
		return info, nil
	}
}

func (s *Streams) JoinStream(id domain.RoomID, conn core.ConnID, userID domain.UserID, name string) (core.StreamInfo, error) {
	viewer, err := s.reg.Register(conn, userID, name)
	if err != nil {
		return core.StreamInfo{}, err
	}
	room, ok := s.rooms.Get(id)
	if !ok {
		return core.StreamInfo{}, core.ErrNoActiveStream
	}
	info, err := room.JoinStream(conn, viewer)
	if err != nil {
		return core.StreamInfo{}, err
	}
	if info.HostConn != conn {
		s.reg.TrackStream(conn, id)
	}
	return info, nil
}

// LeaveStream is a no-op when conn is not watching.
func (s *Streams) LeaveStream(id domain.RoomID, conn core.ConnID) bool {
	room, ok := s.rooms.Get(id)
	if !ok {
		return false
	}
	left := room.LeaveStream(conn)
	if left {
		s.reg.UntrackStream(conn, id)
	}
	s.rooms.Release(id)
	return left
}

func (s *Streams) End(id domain.RoomID, conn core.ConnID) error {
	room, ok := s.rooms.Get(id)
	if !ok {
		return core.ErrNoActiveStream
	}
	if err := room.EndStream(conn); err != nil {
		return err
	}
	s.reg.UntrackStream(conn, id)
	s.rooms.Release(id)
	return nil
}

func (s *Streams) Broadcaster(id domain.RoomID) (core.ConnID, bool) {
	room, ok := s.rooms.Get(id)
	if !ok {
		return "", false
	}
	return room.Broadcaster()
}

func (s *Streams) Info(id domain.RoomID) (core.StreamInfo, error) {
	room, ok := s.rooms.Get(id)
	if !ok {
		return core.StreamInfo{}, core.ErrNotFound
	}
	info, live := room.Stream()
	if !live {
		return core.StreamInfo{}, core.ErrNoActiveStream
	}
	return info, nil
}

func clipTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) <= MaxStreamTitleLen {
		return title
	}
	return strings.ToValidUTF8(title[:MaxStreamTitleLen], "")
}
