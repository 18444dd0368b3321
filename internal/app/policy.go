package app

import "github.com/campushub/relay/internal/core"

type BackpressureAction int

const (
	// KickMember cancels the connection; teardown then runs as on a disconnect.
	KickMember BackpressureAction = iota
	// DropFrame loses this frame only.
	DropFrame
)

func (a BackpressureAction) String() string {
	if a == DropFrame {
		return "drop"
	}
	return "kick"
}

// Policy decides what happens to a connection whose send buffer is full.
type Policy interface {
	OnBackPressure(conn core.ConnID, ev core.Event) BackpressureAction
}

// SimplePolicy drops relayed signals, which peers renegotiate anyway, and
// kicks connections that miss room or stream state.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.ConnID, ev core.Event) BackpressureAction {
	switch ev.EventType() {
	case core.EventSignal, core.EventPong:
		return DropFrame
	default:
		return KickMember
	}
}
