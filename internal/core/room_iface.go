package core

import (
	"time"

	"github.com/campushub/relay/internal/domain"
)

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
	JoinedAt time.Time     `json:"joinedAt"`
}

// StreamInfo is a snapshot of a live stream session.
type StreamInfo struct {
	RoomID    domain.RoomID `json:"roomId"`
	HostConn  ConnID        `json:"hostConnectionId"`
	Host      domain.User   `json:"host"`
	Title     string        `json:"streamTitle"`
	StartedAt time.Time     `json:"startedAt"`
	Viewers   []domain.User `json:"viewers"`
}

// RoomService is the core-facing API of a room: membership plus at most
// one stream session. Every mutation publishes its notifications while the
// room is locked, so events of one room reach each recipient in order.
// It never touches transport resources.
type RoomService interface {
	ID() domain.RoomID

	// Join inserts or replaces the (room, user) entry, sends room-users to
	// the joiner and user-joined-room to the others. Returns the members
	// the joiner sees (itself excluded).
	Join(conn ConnID, m domain.Member) ([]MemberDTO, error)
	// Leave is a no-op when conn is not a member. A leaving host ends its stream.
	Leave(conn ConnID) bool
	MemberCount() int
	MembersSnapshot() []MemberDTO

	StartStream(conn ConnID, host domain.User, title string, at time.Time) (StreamInfo, error)
	JoinStream(conn ConnID, viewer domain.User) (StreamInfo, error)
	LeaveStream(conn ConnID) bool
	EndStream(conn ConnID) error
	Stream() (StreamInfo, bool)
	Broadcaster() (ConnID, bool)

	// Drop removes conn from membership, viewer set and host slot at once.
	Drop(conn ConnID) DropResult
	// TryClose marks an empty, idle room as closed. Closed rooms refuse
	// Join and StartStream with ErrRoomClosed.
	TryClose() bool
}

// RoomObserver learns about membership and stream changes while the room
// is still locked, so the changes of one room arrive in the order they
// happened. It must not block or call back into the room.
type RoomObserver interface {
	MemberJoined(room domain.RoomID, u domain.User)
	MemberLeft(room domain.RoomID, id domain.UserID)
	StreamChanged(room domain.RoomID, info StreamInfo, live bool)
}

type NopObserver struct{}

func (NopObserver) MemberJoined(domain.RoomID, domain.User)       {}
func (NopObserver) MemberLeft(domain.RoomID, domain.UserID)       {}
func (NopObserver) StreamChanged(domain.RoomID, StreamInfo, bool) {}

// DropResult tells what a connection teardown removed from a room.
type DropResult struct {
	LeftRoom    bool
	EndedStream bool
	LeftStream  bool
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
	Live        bool          `json:"live"`
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
	Release(id domain.RoomID)
}
