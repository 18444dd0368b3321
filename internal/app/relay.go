package app

import (
	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
)

// Relay forwards signal envelopes between connections. It keeps no state
// and never queues: a signal for a connection that is gone is dropped.
type Relay struct {
	reg     *Registry
	streams *Streams
	pub     core.Publisher
}

func NewRelay(reg *Registry, streams *Streams, pub core.Publisher) *Relay {
	return &Relay{reg: reg, streams: streams, pub: pub}
}

// Relay stamps the sender identity from the registry and hands the
// envelope to its target. Only malformed envelopes return an error.
func (r *Relay) Relay(env core.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	env.FromUserID, env.UserName = "", ""
	if u, err := r.reg.ResolveUser(env.From); err == nil {
		env.FromUserID, env.UserName = u.ID, u.Username
	}

	if env.To == "" {
		host, ok := r.streams.Broadcaster(env.RoomID)
		if !ok {
			log.Debug().Str("module", "app.relay").Str("from", string(env.From)).
				Str("room", string(env.RoomID)).Msg("no broadcaster, signal dropped")
			return nil
		}
		env.To = host
	}
	if env.To == env.From {
		log.Debug().Str("module", "app.relay").Str("from", string(env.From)).Msg("signal to self dropped")
		return nil
	}
	if _, ok := r.reg.Signal(env.To); !ok {
		log.Debug().Str("module", "app.relay").Str("from", string(env.From)).
			Str("to", string(env.To)).Msg("unknown target, signal dropped")
		return nil
	}

	r.pub.Publish([]core.ConnID{env.To}, env)
	return nil
}
