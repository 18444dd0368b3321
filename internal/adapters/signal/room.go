package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

type roomPayload struct {
	RoomID   domain.RoomID `json:"roomId"`
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName,omitempty"`
}

// identity prefers the user proven at the handshake over the payload.
func (p *roomPayload) identity(c *WsSignalConn) domain.UserID {
	if c.authUser != "" {
		return c.authUser
	}
	return p.UserID
}

// allow charges one attempt to the identity proven at the handshake, or to
// the connection when the payload identity is only claimed.
func (ctl *SignalWSController) allow(l *RoomRateLimiter, c *WsSignalConn) bool {
	if l == nil {
		return true
	}
	if c.authUser != "" {
		return l.Allow("user:" + string(c.authUser))
	}
	return l.Allow("conn:" + string(c.id))
}

func (ctl *SignalWSController) handleJoinRoom(c *WsSignalConn, data json.RawMessage) {
	var p roomPayload
	if !decode(c, core.EventJoinRoom, data, &p) {
		return
	}
	user, err := ctl.Orch.Registry.Register(c.id, p.identity(c), p.UserName)
	if err != nil {
		ctl.reject(c, core.EventJoinRoom, err)
		return
	}
	if !ctl.allow(ctl.opts.JoinLimiter, c) {
		ctl.reject(c, core.EventJoinRoom, core.ErrRateLimited)
		return
	}
	members, err := ctl.Orch.Members.Join(p.RoomID, c.id, user.ID, p.UserName)
	if err != nil {
		ctl.reject(c, core.EventJoinRoom, err)
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("room", string(p.RoomID)).
		Int("members", len(members)+1).Msg("join")
}

// handleLeaveRoom leaves the room but keeps the connection open.
func (ctl *SignalWSController) handleLeaveRoom(c *WsSignalConn, data json.RawMessage) {
	var p roomPayload
	if !decode(c, core.EventLeaveRoom, data, &p) {
		return
	}
	if p.RoomID == "" {
		room, ok := ctl.Orch.Registry.RoomOf(c.id)
		if !ok {
			return
		}
		p.RoomID = room
	}
	left := ctl.Orch.Members.Leave(p.RoomID, c.id)
	log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("room", string(p.RoomID)).
		Bool("was_member", left).Msg("leave")
}
