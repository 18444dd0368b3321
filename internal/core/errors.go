package core

import "errors"

var (
	ErrDuplicateRegistration = errors.New("connection already registered with another identity")
	ErrNotFound              = errors.New("not found")
	ErrNoActiveStream        = errors.New("no active stream in room")
	ErrStreamAlreadyActive   = errors.New("a stream is already live in this room")
	ErrNotBroadcaster        = errors.New("only the broadcaster can end the stream")
	ErrBadPayload            = errors.New("bad payload")
	ErrRateLimited           = errors.New("too many attempts")

	// ErrRoomClosed is internal: the room was forgotten between lookup and use.
	ErrRoomClosed = errors.New("room closed")
)

// Wire codes reported in rejection events.
const (
	CodeDuplicateRegistration = "DuplicateRegistration"
	CodeNotFound              = "NotFound"
	CodeNoActiveStream        = "NoActiveStream"
	CodeStreamAlreadyActive   = "StreamAlreadyActive"
	CodeNotBroadcaster        = "NotBroadcaster"
	CodeRateLimited           = "RateLimited"
	CodeInternal              = "Internal"
)

// ErrorCode maps an error returned by the core or app layer to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateRegistration):
		return CodeDuplicateRegistration
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNoActiveStream):
		return CodeNoActiveStream
	case errors.Is(err, ErrStreamAlreadyActive):
		return CodeStreamAlreadyActive
	case errors.Is(err, ErrNotBroadcaster):
		return CodeNotBroadcaster
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
