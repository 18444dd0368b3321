package core

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/domain"
)

type memberEntry struct {
	conn   ConnID
	member domain.Member
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id  domain.RoomID
	pub Publisher
	obs RoomObserver

	mu      sync.Mutex
	members []memberEntry // insertion order
	stream  *streamSession
	closed  bool
}

// NewRoomService builds an open, empty room. A nil obs is allowed.
func NewRoomService(id domain.RoomID, pub Publisher, obs RoomObserver) RoomService {
	if obs == nil {
		obs = NopObserver{}
	}
	return &roomImpl{id: id, pub: pub, obs: obs}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) Join(conn ConnID, m domain.Member) ([]MemberDTO, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomClosed
	}

	// (room, user) is unique: a rejoin replaces the old entry.
	r.members = slices.DeleteFunc(r.members, func(e memberEntry) bool {
		return e.conn == conn || e.member.User.ID == m.User.ID
	})

	others := r.memberConnsLocked()
	dtos := r.snapshotLocked()
	users := make([]domain.User, 0, len(dtos))
	for _, d := range dtos {
		users = append(users, domain.User{ID: d.UserID, Username: d.UserName})
	}
	r.members = append(r.members, memberEntry{conn: conn, member: m})

	r.pub.Publish([]ConnID{conn}, RoomUsers{RoomID: r.id, Users: users})
	if len(others) > 0 {
		r.pub.Publish(others, UserJoinedRoom{RoomID: r.id, User: m.User})
	}
	if r.stream != nil {
		r.pub.Publish([]ConnID{conn}, r.stream.announce(r.id))
	}
	r.obs.MemberJoined(r.id, m.User)

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(conn)).
		Str("user", string(m.User.ID)).Int("members", len(r.members)).Msg("member joined")
	return dtos, nil
}

func (r *roomImpl) Leave(conn ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(conn)
	if idx < 0 {
		return false
	}
	r.leaveLocked(idx)
	return true
}

// leaveLocked ends the stream if the leaver hosts it, then announces the
// departure to whoever is left.
func (r *roomImpl) leaveLocked(idx int) {
	e := r.members[idx]
	r.members = slices.Delete(r.members, idx, idx+1)

	if r.stream != nil && r.stream.hostConn == e.conn {
		r.endLocked()
	}
	if rest := r.memberConnsLocked(); len(rest) > 0 {
		r.pub.Publish(rest, UserLeftRoom{RoomID: r.id, User: e.member.User})
	}
	r.obs.MemberLeft(r.id, e.member.User.ID)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(e.conn)).
		Str("user", string(e.member.User.ID)).Int("members", len(r.members)).Msg("member left")
}

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *roomImpl) StartStream(conn ConnID, host domain.User, title string, at time.Time) (StreamInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StreamInfo{}, ErrRoomClosed
	}
	if r.stream != nil {
		return StreamInfo{}, ErrStreamAlreadyActive
	}
	r.stream = &streamSession{hostConn: conn, host: host, title: title, startedAt: at}

	to := r.memberConnsLocked()
	if !slices.Contains(to, conn) {
		to = append(to, conn)
	}
	r.pub.Publish(to, r.stream.announce(r.id))
	info := r.stream.info(r.id)
	r.obs.StreamChanged(r.id, info, true)

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(conn)).
		Str("title", title).Msg("stream started")
	return info, nil
}

func (r *roomImpl) JoinStream(conn ConnID, viewer domain.User) (StreamInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stream
	if s == nil {
		return StreamInfo{}, ErrNoActiveStream
	}
	if conn == s.hostConn || s.viewerIndex(conn) >= 0 {
		return s.info(r.id), nil
	}
	s.viewers = append(s.viewers, viewerEntry{conn: conn, user: viewer})

	r.pub.Publish([]ConnID{s.hostConn}, ViewerJoined{RoomID: r.id, ConnectionID: conn, User: viewer})
	r.pub.Publish([]ConnID{conn}, StreamJoined(s.announce(r.id)))
	info := s.info(r.id)
	r.obs.StreamChanged(r.id, info, true)

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(conn)).
		Int("viewers", len(s.viewers)).Msg("viewer joined")
	return info, nil
}

func (r *roomImpl) LeaveStream(conn ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveStreamLocked(conn)
}

func (r *roomImpl) leaveStreamLocked(conn ConnID) bool {
	s := r.stream
	if s == nil {
		return false
	}
	idx := s.viewerIndex(conn)
	if idx < 0 {
		return false
	}
	v := s.viewers[idx]
	s.viewers = slices.Delete(s.viewers, idx, idx+1)
	r.pub.Publish([]ConnID{s.hostConn}, ViewerLeft{RoomID: r.id, ConnectionID: conn, User: v.user})
	r.obs.StreamChanged(r.id, s.info(r.id), true)

	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(conn)).
		Int("viewers", len(s.viewers)).Msg("viewer left")
	return true
}

func (r *roomImpl) EndStream(conn ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return ErrNoActiveStream
	}
	if r.stream.hostConn != conn {
		return ErrNotBroadcaster
	}
	r.endLocked()
	return nil
}

// endLocked notifies every viewer and member exactly once, host excluded.
func (r *roomImpl) endLocked() {
	s := r.stream
	r.stream = nil

	to := make([]ConnID, 0, len(s.viewers)+len(r.members))
	for _, v := range s.viewers {
		to = append(to, v.conn)
	}
	for _, e := range r.members {
		if e.conn != s.hostConn && !slices.Contains(to, e.conn) {
			to = append(to, e.conn)
		}
	}
	if len(to) > 0 {
		r.pub.Publish(to, StreamEnded{RoomID: r.id})
	}
	r.obs.StreamChanged(r.id, StreamInfo{RoomID: r.id}, false)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(s.hostConn)).
		Int("notified", len(to)).Dur("duration", time.Since(s.startedAt)).Msg("stream ended")
}

func (r *roomImpl) Stream() (StreamInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return StreamInfo{}, false
	}
	return r.stream.info(r.id), true
}

func (r *roomImpl) Broadcaster() (ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return "", false
	}
	return r.stream.hostConn, true
}

func (r *roomImpl) Drop(conn ConnID) DropResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res DropResult
	if r.stream != nil {
		if r.stream.hostConn == conn {
			r.endLocked()
			res.EndedStream = true
		} else {
			res.LeftStream = r.leaveStreamLocked(conn)
		}
	}
	if idx := r.indexLocked(conn); idx >= 0 {
		r.leaveLocked(idx)
		res.LeftRoom = true
	}
	return res
}

func (r *roomImpl) TryClose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 || r.stream != nil {
		return false
	}
	r.closed = true
	return true
}

func (r *roomImpl) indexLocked(conn ConnID) int {
	return slices.IndexFunc(r.members, func(e memberEntry) bool { return e.conn == conn })
}

func (r *roomImpl) memberConnsLocked() []ConnID {
	out := make([]ConnID, 0, len(r.members))
	for _, e := range r.members {
		out = append(out, e.conn)
	}
	return out
}

func (r *roomImpl) snapshotLocked() []MemberDTO {
	out := make([]MemberDTO, 0, len(r.members))
	for _, e := range r.members {
		u := e.member.User
		out = append(out, MemberDTO{UserID: u.ID, UserName: u.Username, JoinedAt: e.member.JoinedAt})
	}
	return out
}
