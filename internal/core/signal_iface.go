package core

import "errors"

// Frame is a raw encoded event as written to the wire.
type Frame []byte

// ConnID identifies one live transport connection. Assigned by the
// transport on connect and never reused.
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Publisher fans an event out to connections. Implementations must not
// block on the network; delivery is best effort.
type Publisher interface {
	Publish(to []ConnID, ev Event)
}

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
