package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
)

type streamPayload struct {
	roomPayload
	StreamTitle string `json:"streamTitle,omitempty"`
}

func (ctl *SignalWSController) handleStartStream(c *WsSignalConn, data json.RawMessage) {
	var p streamPayload
	if !decode(c, core.EventStartStream, data, &p) {
		return
	}
	host, err := ctl.Orch.Registry.Register(c.id, p.identity(c), p.UserName)
	if err != nil {
		ctl.reject(c, core.EventStartStream, err)
		return
	}
	if !ctl.allow(ctl.opts.StartLimiter, c) {
		ctl.reject(c, core.EventStartStream, core.ErrRateLimited)
		return
	}
	if _, err := ctl.Orch.Streams.Start(p.RoomID, c.id, host.ID, p.UserName, p.StreamTitle); err != nil {
		ctl.reject(c, core.EventStartStream, err)
	}
}

func (ctl *SignalWSController) handleEndStream(c *WsSignalConn, data json.RawMessage) {
	var p streamPayload
	if !decode(c, core.EventEndStream, data, &p) {
		return
	}
	if err := ctl.Orch.Streams.End(p.RoomID, c.id); err != nil {
		ctl.reject(c, core.EventEndStream, err)
	}
}

func (ctl *SignalWSController) handleJoinStream(c *WsSignalConn, data json.RawMessage) {
	var p streamPayload
	if !decode(c, core.EventJoinStream, data, &p) {
		return
	}
	if _, err := ctl.Orch.Streams.JoinStream(p.RoomID, c.id, p.identity(c), p.UserName); err != nil {
		ctl.reject(c, core.EventJoinStream, err)
	}
}

func (ctl *SignalWSController) handleLeaveStream(c *WsSignalConn, data json.RawMessage) {
	var p streamPayload
	if !decode(c, core.EventLeaveStream, data, &p) {
		return
	}
	ctl.Orch.Streams.LeaveStream(p.RoomID, c.id)
}

// handleRelay forwards an opaque offer/answer. Nothing is sent back to the
// sender, even when the target is gone.
func (ctl *SignalWSController) handleRelay(c *WsSignalConn, data json.RawMessage) {
	var env core.Envelope
	if !decode(c, core.EventSignal, data, &env) {
		return
	}
	env.From = c.id
	if err := ctl.Orch.Relay.Relay(env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("signal dropped")
	}
}
