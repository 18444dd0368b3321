package orch

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/campushub/relay/internal/app"
	"github.com/campushub/relay/internal/core"
)

// Orchestrator wires the relay services around one registry and owns the
// connection lifecycle.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Members  *app.Membership
	Streams  *app.Streams
	Relay    *app.Relay

	pub        core.Publisher
	iceServers []webrtc.ICEServer
}

type Options struct {
	Policy     app.Policy
	Presence   app.Presence
	ICEServers []webrtc.ICEServer
}

func New(opts Options) *Orchestrator {
	reg := app.NewRegistry()
	pub := app.NewDispatcher(reg, opts.Policy)
	rooms := app.NewRoomManager(pub, opts.Presence)
	streams := app.NewStreams(reg, rooms)
	return &Orchestrator{
		Registry:   reg,
		Rooms:      rooms,
		Members:    app.NewMembership(reg, rooms),
		Streams:    streams,
		Relay:      app.NewRelay(reg, streams, pub),
		pub:        pub,
		iceServers: opts.ICEServers,
	}
}

// Connect attaches a new transport and greets it with its connection id
// and the ICE servers peers should use.
func (o *Orchestrator) Connect(conn core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Attach(conn, sig, cancel)
	o.Send(conn, core.Welcome{ConnectionID: conn, ICEServers: o.iceServers})
}

// Send delivers ev to a single connection.
func (o *Orchestrator) Send(conn core.ConnID, ev core.Event) {
	o.pub.Publish([]core.ConnID{conn}, ev)
}

func (o *Orchestrator) ICEServers() []webrtc.ICEServer { return o.iceServers }
