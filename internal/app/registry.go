package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/campushub/relay/internal/core"
	"github.com/campushub/relay/internal/domain"
)

type sessionEntry struct {
	User    *domain.User // nil until the first room or stream event
	RoomID  domain.RoomID
	Streams map[domain.RoomID]struct{}
	Signal  core.SignalConnection
	Cancel  context.CancelFunc
}

// SessionSnapshot is what a connection owned at the moment it was detached.
type SessionSnapshot struct {
	Conn    core.ConnID
	User    domain.User
	RoomID  domain.RoomID
	Streams []domain.RoomID
}

// Registry maps live connections to their identity, current room and
// transport. It never calls into rooms.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.ConnID]*sessionEntry)}
}

// Attach binds a freshly accepted transport connection.
func (r *Registry) Attach(conn core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = &sessionEntry{Signal: sig, Cancel: cancel, Streams: make(map[domain.RoomID]struct{})}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("attached connection")
}

// Register associates conn with a user. Re-registering the same user is
// idempotent and may update the display name; a different user id on the
// same connection is ErrDuplicateRegistration.
func (r *Registry) Register(conn core.ConnID, id domain.UserID, name string) (domain.User, error) {
	u, err := domain.NewUser(id, domain.TruncateUsername(name))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", core.ErrBadPayload, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return domain.User{}, core.ErrNotFound
	}
	switch {
	case e.User == nil:
		e.User = u
		log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("user", string(id)).Msg("registered user")
	case e.User.ID != id:
		return domain.User{}, core.ErrDuplicateRegistration
	case strings.TrimSpace(name) != "" && e.User.Username != u.Username:
		e.User.Username = u.Username
		log.Info().Str("module", "app.registry").Str("conn", string(conn)).Str("username", u.Username).Msg("updated username")
	}
	return *e.User, nil
}

func (r *Registry) ResolveUser(conn core.ConnID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[conn]
	if !ok || e.User == nil {
		return domain.User{}, core.ErrNotFound
	}
	return *e.User, nil
}

func (r *Registry) Signal(conn core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[conn]; ok {
		return e.Signal, true
	}
	return nil, false
}

func (r *Registry) RoomOf(conn core.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[conn]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

// SetRoom records the room conn is in; an empty id clears it.
func (r *Registry) SetRoom(conn core.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return false
	}
	e.RoomID = room
	log.Debug().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Msg("updated room")
	return true
}

// ClearRoom forgets the room association only if it still points at room.
func (r *Registry) ClearRoom(conn core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok && e.RoomID == room {
		e.RoomID = ""
	}
}

// TrackStream remembers that conn hosts or watches a stream in room, so
// teardown can find it. The set may hold rooms whose stream already ended.
func (r *Registry) TrackStream(conn core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok {
		e.Streams[room] = struct{}{}
	}
}

func (r *Registry) UntrackStream(conn core.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[conn]; ok {
		delete(e.Streams, room)
	}
}

// Detach removes conn and returns what it owned. Events published to conn
// afterwards are dropped.
func (r *Registry) Detach(conn core.ConnID) (SessionSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[conn]
	if !ok {
		return SessionSnapshot{}, false
	}
	delete(r.sessions, conn)

	snap := SessionSnapshot{Conn: conn, RoomID: e.RoomID}
	if e.User != nil {
		snap.User = *e.User
	}
	for room := range e.Streams {
		snap.Streams = append(snap.Streams, room)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("detached connection")
	return snap, true
}

func (r *Registry) Cancel(conn core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.sessions[conn]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn)).Msg("canceled connection")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
