package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
)

// Dispatcher is the core.Publisher backed by the registry's transports.
// It encodes every event once and never blocks on a recipient.
type Dispatcher struct {
	reg    *Registry
	policy Policy
}

func NewDispatcher(reg *Registry, policy Policy) *Dispatcher {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Dispatcher{reg: reg, policy: policy}
}

func (d *Dispatcher) Publish(to []core.ConnID, ev core.Event) {
	if len(to) == 0 {
		return
	}
	frame, err := core.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatcher").Str("event", ev.EventType()).Msg("encode failed")
		return
	}
	for _, conn := range to {
		sig, ok := d.reg.Signal(conn)
		if !ok || sig == nil {
			log.Debug().Str("module", "app.dispatcher").Str("conn", string(conn)).
				Str("event", ev.EventType()).Msg("recipient gone, dropped")
			continue
		}
		if err := sig.TrySend(frame); err != nil {
			d.onSendError(conn, ev, err)
		}
	}
}

func (d *Dispatcher) onSendError(conn core.ConnID, ev core.Event, err error) {
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "app.dispatcher").Str("conn", string(conn)).Msg("send failed")
		return
	}
	action := d.policy.OnBackPressure(conn, ev)
	log.Warn().Str("module", "app.dispatcher").Str("conn", string(conn)).Str("event", ev.EventType()).
		Stringer("action", action).Msg("backpressure")
	if action == KickMember {
		d.reg.Cancel(conn)
	}
}
