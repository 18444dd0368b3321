package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
)

func (ctl *SignalWSController) handlePing(c *WsSignalConn) {
	ctl.Orch.Send(c.id, core.Pong{})
}

// reject answers a failed operation with an error event. Malformed input
// is only logged.
func (ctl *SignalWSController) reject(c *WsSignalConn, event string, err error) {
	if errors.Is(err, core.ErrBadPayload) {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Str("event", event).Msg("dropped")
		return
	}
	log.Info().Err(err).Str("module", "signal").Str("conn", string(c.id)).Str("event", event).Msg("rejected")
	ctl.Orch.Send(c.id, core.NewRejection(event, err))
}
