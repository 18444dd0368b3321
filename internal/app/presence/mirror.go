package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

const (
	DefaultQueueSize = 1024
	opTimeout        = 2 * time.Second
)

type op struct {
	name string
	room domain.RoomID
	fn   func(ctx context.Context) error
}

// Mirror applies presence changes to a Store on a single worker. Callers
// never wait on the store: when the queue is full the change is dropped.
type Mirror struct {
	store Store

	mu     sync.RWMutex
	closed bool
	queue  chan op
}

func NewMirror(store Store, size int) *Mirror {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Mirror{store: store, queue: make(chan op, size)}
}

func (m *Mirror) MemberJoined(room domain.RoomID, u domain.User) {
	m.enqueue(op{name: "add_member", room: room, fn: func(ctx context.Context) error {
		return m.store.AddMember(ctx, room, u)
	}})
}

func (m *Mirror) MemberLeft(room domain.RoomID, id domain.UserID) {
	m.enqueue(op{name: "remove_member", room: room, fn: func(ctx context.Context) error {
		return m.store.RemoveMember(ctx, room, id)
	}})
}

func (m *Mirror) StreamChanged(room domain.RoomID, info core.StreamInfo, live bool) {
	if !live {
		m.enqueue(op{name: "clear_stream", room: room, fn: func(ctx context.Context) error {
			return m.store.ClearStream(ctx, room)
		}})
		return
	}
	m.enqueue(op{name: "set_stream", room: room, fn: func(ctx context.Context) error {
		return m.store.SetStream(ctx, room, info)
	}})
}

func (m *Mirror) enqueue(o op) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- o:
	default:
		log.Warn().Str("module", "presence").Str("op", o.name).Str("room", string(o.room)).Msg("queue full, change dropped")
	}
}

// Run resets the store and applies queued changes until ctx is done or
// Close is called. Pending changes are flushed before it returns.
func (m *Mirror) Run(ctx context.Context) error {
	if err := m.store.Reset(ctx); err != nil {
		log.Warn().Err(err).Str("module", "presence").Msg("reset failed")
	}
	log.Info().Str("module", "presence").Int("queue", cap(m.queue)).Msg("mirror started")
	for {
		select {
		case o, ok := <-m.queue:
			if !ok {
				return nil
			}
			m.apply(ctx, o)
		case <-ctx.Done():
			m.Close()
			flush := context.WithoutCancel(ctx)
			for o := range m.queue {
				m.apply(flush, o)
			}
			log.Info().Str("module", "presence").Msg("mirror stopped")
			return nil
		}
	}
}

// Close stops accepting changes. Run drains what is already queued.
func (m *Mirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.queue)
}

func (m *Mirror) apply(ctx context.Context, o op) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := o.fn(ctx); err != nil {
		log.Warn().Err(err).Str("module", "presence").Str("op", o.name).Str("room", string(o.room)).Msg("apply failed")
	}
}
