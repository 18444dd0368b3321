package core

import (
	"slices"
	"time"

	"github.com/campushub/relay/internal/domain"
)

type viewerEntry struct {
	conn ConnID
	user domain.User
}

// streamSession is the Live state of a room. The server only tracks
// signaling addresses; every viewer negotiates its own peer link with the
// host.
type streamSession struct {
	hostConn  ConnID
	host      domain.User
	title     string
	startedAt time.Time
	viewers   []viewerEntry
}

func (s *streamSession) viewerIndex(conn ConnID) int {
	return slices.IndexFunc(s.viewers, func(v viewerEntry) bool { return v.conn == conn })
}

func (s *streamSession) announce(room domain.RoomID) StreamStarted {
	return StreamStarted{
		RoomID:           room,
		UserID:           s.host.ID,
		UserName:         s.host.Username,
		StreamTitle:      s.title,
		HostConnectionID: s.hostConn,
		StartedAt:        s.startedAt,
	}
}

func (s *streamSession) info(room domain.RoomID) StreamInfo {
	viewers := make([]domain.User, 0, len(s.viewers))
	for _, v := range s.viewers {
		viewers = append(viewers, v.user)
	}
	return StreamInfo{
		RoomID:    room,
		HostConn:  s.hostConn,
		Host:      s.host,
		Title:     s.title,
		StartedAt: s.startedAt,
		Viewers:   viewers,
	}
}
