package core

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/campushub/relay/internal/domain"
)

// Inbound event names.
const (
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventStartStream  = "start-stream"
	EventEndStream    = "end-stream"
	EventJoinStream   = "join-stream"
	EventLeaveStream  = "leave-stream"
	EventStreamSignal = "stream-signal"
	EventPing         = "ping"
)

// Outbound event names. EventSignal travels both ways.
const (
	EventWelcome        = "welcome"
	EventRoomUsers      = "room-users"
	EventUserJoinedRoom = "user-joined-room"
	EventUserLeftRoom   = "user-left-room"
	EventStreamStarted  = "stream-started"
	EventStreamJoined   = "stream-joined"
	EventStreamEnded    = "stream-ended"
	EventViewerJoined   = "viewer-joined"
	EventViewerLeft     = "viewer-left"
	EventSignal         = "signal"
	EventPong           = "pong"
	EventError          = "error"
)

// Event is anything that can be pushed to a connection.
type Event interface {
	EventType() string
}

type wireFrame struct {
	Type string `json:"type"`
	Data Event  `json:"data,omitempty"`
}

// Encode renders an event as {"type": ..., "data": ...}.
func Encode(ev Event) (Frame, error) {
	b, err := json.Marshal(wireFrame{Type: ev.EventType(), Data: ev})
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

type Welcome struct {
	ConnectionID ConnID             `json:"connectionId"`
	ICEServers   []webrtc.ICEServer `json:"iceServers,omitempty"`
}

func (Welcome) EventType() string { return EventWelcome }

type RoomUsers struct {
	RoomID domain.RoomID `json:"roomId"`
	Users  []domain.User `json:"users"`
}

func (RoomUsers) EventType() string { return EventRoomUsers }

type UserJoinedRoom struct {
	RoomID domain.RoomID `json:"roomId"`
	domain.User
}

func (UserJoinedRoom) EventType() string { return EventUserJoinedRoom }

type UserLeftRoom struct {
	RoomID domain.RoomID `json:"roomId"`
	domain.User
}

func (UserLeftRoom) EventType() string { return EventUserLeftRoom }

type StreamStarted struct {
	RoomID           domain.RoomID `json:"roomId"`
	UserID           domain.UserID `json:"userId"`
	UserName         string        `json:"userName"`
	StreamTitle      string        `json:"streamTitle"`
	HostConnectionID ConnID        `json:"hostConnectionId"`
	StartedAt        time.Time     `json:"startedAt"`
}

func (StreamStarted) EventType() string { return EventStreamStarted }

// StreamJoined acknowledges join-stream to the viewer.
type StreamJoined StreamStarted

func (StreamJoined) EventType() string { return EventStreamJoined }

type StreamEnded struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (StreamEnded) EventType() string { return EventStreamEnded }

type ViewerJoined struct {
	RoomID       domain.RoomID `json:"roomId"`
	ConnectionID ConnID        `json:"connectionId"`
	domain.User
}

func (ViewerJoined) EventType() string { return EventViewerJoined }

type ViewerLeft struct {
	RoomID       domain.RoomID `json:"roomId"`
	ConnectionID ConnID        `json:"connectionId"`
	domain.User
}

func (ViewerLeft) EventType() string { return EventViewerLeft }

type Pong struct{}

func (Pong) EventType() string { return EventPong }

// Rejection reports a failed request back to the originating connection.
type Rejection struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Rejection) EventType() string { return EventError }

// NewRejection builds the rejection event for err raised while handling event.
func NewRejection(event string, err error) Rejection {
	return Rejection{Event: event, Code: ErrorCode(err), Message: err.Error()}
}
